package hermes

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMessageReceivedParsing(t *testing.T) {
	raw := `{
		"message_id": "wamid.HBgLNTczMDA",
		"source": "chat-web",
		"text": "Cliente: Acme\nDetalle del pedido:\nCOD1 – Widget\n- Rojo: 3",
		"dialect_hint": "web-no-emoji",
		"received_at": "2026-03-02T14:05:00Z"
	}`

	var msg MessageReceived
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("failed to parse MessageReceived: %v", err)
	}

	if msg.MessageID != "wamid.HBgLNTczMDA" {
		t.Errorf("expected message_id, got '%s'", msg.MessageID)
	}
	if msg.Source != "chat-web" {
		t.Errorf("expected source 'chat-web', got '%s'", msg.Source)
	}
	if msg.DialectHint != "web-no-emoji" {
		t.Errorf("expected dialect_hint 'web-no-emoji', got '%s'", msg.DialectHint)
	}
	if !msg.ReceivedAt.Equal(time.Date(2026, 3, 2, 14, 5, 0, 0, time.UTC)) {
		t.Errorf("unexpected received_at %s", msg.ReceivedAt)
	}
}

func TestOrderParsedFieldNames(t *testing.T) {
	data, err := json.Marshal(OrderParsed{
		OrderID:         "o-1",
		MessageID:       "m-1",
		CustomerName:    "Acme",
		Dialect:         "mobile-emoji",
		LineItems:       2,
		TotalUnits:      12,
		SkippedBlocks:   1,
		EstimatedPrices: 1,
	})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	for _, key := range []string{"order_id", "message_id", "customer_name", "dialect", "line_items", "total_units", "skipped_blocks", "estimated_prices"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("missing field %q in %s", key, data)
		}
	}
}
