package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/comanda/internal/catalog"
)

// LookupProduct reads a product from the inventory table, matching on
// catalog.CodeKey. A code with no row returns an error wrapping
// catalog.ErrNotFound.
func (s *Store) LookupProduct(ctx context.Context, code string) (catalog.Product, error) {
	key := catalog.CodeKey(code)
	row := s.pool.QueryRow(ctx, `
		SELECT code, description, unit_price, stock
		FROM inventory WHERE upper(replace(code, ' ', '')) = $1
		ORDER BY code
		LIMIT 1`, key)

	var p catalog.Product
	err := row.Scan(&p.Code, &p.Description, &p.UnitPrice, &p.Stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Product{}, fmt.Errorf("%w: %s", catalog.ErrNotFound, key)
	}
	if err != nil {
		return catalog.Product{}, fmt.Errorf("lookup product %s: %w", key, err)
	}
	return p, nil
}

// Lookup satisfies catalog.Lookup.
func (s *Store) Lookup(ctx context.Context, code string) (catalog.Product, error) {
	return s.LookupProduct(ctx, code)
}

// UpsertProduct creates or replaces an inventory row.
func (s *Store) UpsertProduct(ctx context.Context, p catalog.Product) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO inventory (code, description, unit_price, stock)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (code)
		DO UPDATE SET description = $2, unit_price = $3, stock = $4`,
		catalog.NormalizeCode(p.Code), p.Description, p.UnitPrice, p.Stock,
	)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}
