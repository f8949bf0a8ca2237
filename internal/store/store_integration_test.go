//go:build integration

package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/comanda/internal/catalog"
	"github.com/MikeSquared-Agency/comanda/internal/orderparse"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestIntegration_LookupProduct(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	code := "IT-" + uuid.New().String()[:8]

	if err := s.UpsertProduct(ctx, catalog.Product{Code: code, Description: "Blusa", UnitPrice: 32000.5, Stock: 7}); err != nil {
		t.Fatalf("UpsertProduct failed: %v", err)
	}
	t.Cleanup(func() {
		s.pool.Exec(ctx, "DELETE FROM inventory WHERE code = $1", catalog.NormalizeCode(code))
	})

	p, err := s.LookupProduct(ctx, " "+code+" ")
	if err != nil {
		t.Fatalf("LookupProduct failed: %v", err)
	}
	if p.UnitPrice != 32000.5 || p.Stock != 7 || p.Description != "Blusa" {
		t.Errorf("unexpected product %+v", p)
	}

	spaced := code + " Z"
	if err := s.UpsertProduct(ctx, catalog.Product{Code: spaced, UnitPrice: 10}); err != nil {
		t.Fatalf("UpsertProduct failed: %v", err)
	}
	t.Cleanup(func() {
		s.pool.Exec(ctx, "DELETE FROM inventory WHERE code = $1", catalog.NormalizeCode(spaced))
	})
	p, err = s.LookupProduct(ctx, code+"z")
	if err != nil {
		t.Fatalf("space-free lookup failed: %v", err)
	}
	if p.Code != catalog.NormalizeCode(spaced) {
		t.Errorf("space-free lookup matched %q", p.Code)
	}

	_, err = s.LookupProduct(ctx, "NO-SUCH-"+code)
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIntegration_WriteAndGetOrder(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	customer := "Cliente Integración " + uuid.New().String()[:8]

	msg := orderparse.RawMessage{
		ID:         "wamid-" + uuid.New().String()[:8],
		Source:     orderparse.SourceChatWeb,
		Text:       "raw text",
		ReceivedAt: time.Now().UTC(),
	}
	res := &orderparse.Result{
		CustomerName:  customer,
		FinalComment:  "entregar el lunes",
		Dialect:       orderparse.DialectWebNoEmoji,
		SkippedBlocks: 1,
		LineItems: []orderparse.LineItem{
			{
				SequenceIndex: 1, Code: "ZZ9", Description: "Último", UnitPrice: 25000, PriceIsEstimated: true,
				Variants: []orderparse.Variant{{SequenceIndex: 1, Label: "Sin especificar", OrderedQuantity: 2}},
			},
			{
				SequenceIndex: 2, Code: "AA1", Description: "Primero", UnitPrice: 1500, ItemComment: "frágil",
				Variants: []orderparse.Variant{
					{SequenceIndex: 1, Label: "Rojo", OrderedQuantity: 3},
					{SequenceIndex: 2, Label: "Azul", OrderedQuantity: 5},
				},
			},
		},
	}

	id, err := s.WriteOrder(ctx, msg, res)
	if err != nil {
		t.Fatalf("WriteOrder failed: %v", err)
	}
	if id == uuid.Nil {
		t.Fatal("expected non-nil order ID")
	}
	t.Cleanup(func() {
		s.pool.Exec(ctx, "DELETE FROM orders WHERE id = $1", id)
		s.pool.Exec(ctx, "DELETE FROM clients WHERE name_key = lower($1)", customer)
	})

	got, err := s.GetOrder(ctx, id)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if got.CustomerName != customer || got.FinalComment != "entregar el lunes" {
		t.Errorf("unexpected order header %+v", got)
	}
	if got.Dialect != orderparse.DialectWebNoEmoji || got.SkippedBlocks != 1 {
		t.Errorf("dialect/skipped = %s/%d", got.Dialect, got.SkippedBlocks)
	}
	if len(got.LineItems) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got.LineItems))
	}
	// Stored order follows sequence_index, not code order.
	if got.LineItems[0].Code != "ZZ9" || got.LineItems[1].Code != "AA1" {
		t.Errorf("item order = %s, %s", got.LineItems[0].Code, got.LineItems[1].Code)
	}
	if v := got.LineItems[1].Variants; len(v) != 2 || v[0].Label != "Rojo" || v[1].OrderedQuantity != 5 {
		t.Errorf("variants = %+v", v)
	}
	if !got.LineItems[0].PriceIsEstimated || got.LineItems[1].ItemComment != "frágil" {
		t.Errorf("items = %+v", got.LineItems)
	}

	// Same customer, different case: same client row.
	clientID, err := s.UpsertClient(ctx, "  "+customer+"  ")
	if err != nil {
		t.Fatalf("UpsertClient failed: %v", err)
	}
	if clientID != got.ClientID {
		t.Errorf("expected existing client %s, got %s", got.ClientID, clientID)
	}
}

func TestIntegration_GetOrderNotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetOrder(context.Background(), uuid.New())
	if !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}
