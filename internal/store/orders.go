package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/comanda/internal/orderparse"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderRow is a stored order with its items in sequence order.
type OrderRow struct {
	ID            uuid.UUID             `json:"id"`
	ClientID      uuid.UUID             `json:"clientId"`
	MessageID     string                `json:"messageId"`
	CustomerName  string                `json:"customerName"`
	FinalComment  string                `json:"finalComment"`
	Dialect       orderparse.Dialect    `json:"dialect"`
	Source        string                `json:"source"`
	SkippedBlocks int                   `json:"skippedBlocks"`
	CreatedAt     time.Time             `json:"createdAt"`
	LineItems     []orderparse.LineItem `json:"lineItems"`
}

// UpsertClient returns the id of the client with this name, creating it if
// needed. Names match case-insensitively.
func (s *Store) UpsertClient(ctx context.Context, name string) (uuid.UUID, error) {
	return upsertClient(ctx, s.pool, name)
}

func upsertClient(ctx context.Context, q querier, name string) (uuid.UUID, error) {
	name = strings.TrimSpace(name)
	var id uuid.UUID
	err := q.QueryRow(ctx, `
		INSERT INTO clients (id, name, name_key)
		VALUES ($1, $2, lower($2))
		ON CONFLICT (name_key) DO UPDATE SET name = clients.name
		RETURNING id`,
		uuid.New(), name,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert client: %w", err)
	}
	return id, nil
}

// WriteOrder stores a parsed order across orders, order_items and
// order_item_variants in one transaction. Sequence indices are written as
// given.
func (s *Store) WriteOrder(ctx context.Context, msg orderparse.RawMessage, res *orderparse.Result) (uuid.UUID, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	clientID, err := upsertClient(ctx, tx, res.CustomerName)
	if err != nil {
		return uuid.Nil, err
	}

	var receivedAt *time.Time
	if !msg.ReceivedAt.IsZero() {
		receivedAt = &msg.ReceivedAt
	}

	orderID := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, client_id, message_id, customer_name, final_comment, dialect, source, skipped_blocks, raw_text, received_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())`,
		orderID, clientID, msg.ID, res.CustomerName, res.FinalComment, res.Dialect.String(),
		string(msg.Source), res.SkippedBlocks, msg.Text, receivedAt,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert order: %w", err)
	}

	for _, item := range res.LineItems {
		itemID := uuid.New()
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, sequence_index, code, description, unit_price, price_estimated, item_comment)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			itemID, orderID, item.SequenceIndex, item.Code, item.Description,
			item.UnitPrice, item.PriceIsEstimated, item.ItemComment,
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert item %d: %w", item.SequenceIndex, err)
		}

		for _, v := range item.Variants {
			_, err = tx.Exec(ctx, `
				INSERT INTO order_item_variants (id, order_item_id, sequence_index, label, quantity)
				VALUES ($1, $2, $3, $4, $5)`,
				uuid.New(), itemID, v.SequenceIndex, v.Label, v.OrderedQuantity,
			)
			if err != nil {
				return uuid.Nil, fmt.Errorf("insert variant %d/%d: %w", item.SequenceIndex, v.SequenceIndex, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}
	return orderID, nil
}

// GetOrder fetches an order with items and variants ordered by sequence index.
func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*OrderRow, error) {
	var (
		o       OrderRow
		dialect string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, client_id, message_id, customer_name, final_comment, dialect, source, skipped_blocks, created_at
		FROM orders WHERE id = $1`, id,
	).Scan(&o.ID, &o.ClientID, &o.MessageID, &o.CustomerName, &o.FinalComment, &dialect, &o.Source, &o.SkippedBlocks, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	// An unrecognised name reads back as DialectUnknown.
	o.Dialect, _ = orderparse.ParseDialect(dialect)

	rows, err := s.pool.Query(ctx, `
		SELECT i.id, i.sequence_index, i.code, i.description, i.unit_price, i.price_estimated, i.item_comment,
		       v.sequence_index, v.label, v.quantity
		FROM order_items i
		JOIN order_item_variants v ON v.order_item_id = i.id
		WHERE i.order_id = $1
		ORDER BY i.sequence_index, v.sequence_index`, id)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var current uuid.UUID
	for rows.Next() {
		var (
			itemID uuid.UUID
			item   orderparse.LineItem
			v      orderparse.Variant
		)
		if err := rows.Scan(&itemID, &item.SequenceIndex, &item.Code, &item.Description, &item.UnitPrice,
			&item.PriceIsEstimated, &item.ItemComment, &v.SequenceIndex, &v.Label, &v.OrderedQuantity); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if itemID != current || len(o.LineItems) == 0 {
			o.LineItems = append(o.LineItems, item)
			current = itemID
		}
		last := &o.LineItems[len(o.LineItems)-1]
		last.Variants = append(last.Variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	if o.LineItems == nil {
		o.LineItems = []orderparse.LineItem{}
	}
	return &o, nil
}
