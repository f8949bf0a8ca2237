package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/comanda/internal/hermes"
	"github.com/MikeSquared-Agency/comanda/internal/metrics"
	"github.com/MikeSquared-Agency/comanda/internal/orderparse"
)

// handlerTimeout bounds the work done for one bus message.
const handlerTimeout = 30 * time.Second

type Parser interface {
	Parse(ctx context.Context, msg orderparse.RawMessage) (*orderparse.Result, error)
}

type OrderWriter interface {
	WriteOrder(ctx context.Context, msg orderparse.RawMessage, res *orderparse.Result) (uuid.UUID, error)
}

type Publisher interface {
	Publish(subject string, data any) error
}

// Processor runs the order pipeline: parse, persist, announce.
type Processor struct {
	parser    Parser
	orders    OrderWriter
	publisher Publisher
	logger    *slog.Logger
}

// New wires a processor. orders and publisher may be nil: parsing still
// happens but nothing is stored or announced.
func New(parser Parser, orders OrderWriter, publisher Publisher, logger *slog.Logger) *Processor {
	return &Processor{
		parser:    parser,
		orders:    orders,
		publisher: publisher,
		logger:    logger,
	}
}

// Outcome is what Ingest did with one message. OrderID is uuid.Nil when no
// order was stored.
type Outcome struct {
	OrderID uuid.UUID          `json:"orderId"`
	Result  *orderparse.Result `json:"result"`
}

// Parse runs the parser and records metrics without storing anything.
func (p *Processor) Parse(ctx context.Context, msg orderparse.RawMessage) (*orderparse.Result, error) {
	start := time.Now()
	res, err := p.parser.Parse(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("parse message %s: %w", msg.ID, err)
	}
	metrics.ParseDuration.Observe(time.Since(start).Seconds())
	metrics.OrdersParsed.WithLabelValues(res.Dialect.String()).Inc()
	metrics.ItemBlocksSkipped.Add(float64(res.SkippedBlocks))
	metrics.PricesEstimated.Add(float64(res.EstimatedPrices()))
	return res, nil
}

// Ingest parses msg and, when at least one line item was recovered, stores
// the order and publishes comanda.order.parsed. A message with no items is
// announced on comanda.order.empty and not stored.
func (p *Processor) Ingest(ctx context.Context, msg orderparse.RawMessage) (*Outcome, error) {
	res, err := p.Parse(ctx, msg)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Result: res}

	if len(res.LineItems) == 0 {
		metrics.OrdersEmpty.Inc()
		p.logger.Warn("no line items recovered",
			"message_id", msg.ID,
			"source", msg.Source,
			"dialect", res.Dialect.String(),
			"skipped_blocks", res.SkippedBlocks,
		)
		p.publish(hermes.SubjectOrderEmpty, hermes.OrderEmpty{
			MessageID:     msg.ID,
			CustomerName:  res.CustomerName,
			Dialect:       res.Dialect.String(),
			SkippedBlocks: res.SkippedBlocks,
		})
		return out, nil
	}

	if p.orders != nil {
		id, err := p.orders.WriteOrder(ctx, msg, res)
		if err != nil {
			return nil, fmt.Errorf("store order for message %s: %w", msg.ID, err)
		}
		out.OrderID = id
	}

	p.logger.Info("order parsed",
		"message_id", msg.ID,
		"order_id", out.OrderID,
		"customer", res.CustomerName,
		"dialect", res.Dialect.String(),
		"items", len(res.LineItems),
		"units", res.TotalUnits(),
		"estimated_prices", res.EstimatedPrices(),
	)

	p.publish(hermes.SubjectOrderParsed, hermes.OrderParsed{
		OrderID:         orderIDString(out.OrderID),
		MessageID:       msg.ID,
		CustomerName:    res.CustomerName,
		Dialect:         res.Dialect.String(),
		LineItems:       len(res.LineItems),
		TotalUnits:      res.TotalUnits(),
		SkippedBlocks:   res.SkippedBlocks,
		EstimatedPrices: res.EstimatedPrices(),
	})
	return out, nil
}

// HandleMessageReceived is the NATS handler for comanda.message.received.
func (p *Processor) HandleMessageReceived(subject string, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	var evt hermes.MessageReceived
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse message event", "subject", subject, "error", err)
		return
	}

	msg := MessageFromEvent(evt, p.logger)
	if _, err := p.Ingest(ctx, msg); err != nil {
		p.logger.Error("ingest failed", "message_id", msg.ID, "error", err)
	}
}

// MessageFromEvent converts a bus event into a RawMessage. An unrecognised
// dialect hint is logged and ignored.
func MessageFromEvent(evt hermes.MessageReceived, logger *slog.Logger) orderparse.RawMessage {
	dialect, err := orderparse.ParseDialect(evt.DialectHint)
	if err != nil {
		logger.Warn("ignoring dialect hint", "message_id", evt.MessageID, "hint", evt.DialectHint, "error", err)
	}
	receivedAt := evt.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}
	return orderparse.RawMessage{
		ID:         evt.MessageID,
		Source:     orderparse.Source(evt.Source),
		Text:       evt.Text,
		Dialect:    dialect,
		ReceivedAt: receivedAt,
	}
}

func (p *Processor) publish(subject string, data any) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(subject, data); err != nil {
		p.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}

func orderIDString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}
