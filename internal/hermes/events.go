package hermes

import "time"

const (
	SubjectMessageReceived = "comanda.message.received"
	SubjectOrderParsed     = "comanda.order.parsed"
	SubjectOrderEmpty      = "comanda.order.empty"
	SubjectAgentRegistered = "comanda.agent.registered"
)

// MessageReceived is an inbound order message, as forwarded by the chat
// gateway or a document extractor.
type MessageReceived struct {
	MessageID   string    `json:"message_id"`
	Source      string    `json:"source"`
	Text        string    `json:"text"`
	DialectHint string    `json:"dialect_hint,omitempty"`
	ReceivedAt  time.Time `json:"received_at"`
}

// OrderParsed announces an order that was parsed and stored.
type OrderParsed struct {
	OrderID         string `json:"order_id"`
	MessageID       string `json:"message_id"`
	CustomerName    string `json:"customer_name"`
	Dialect         string `json:"dialect"`
	LineItems       int    `json:"line_items"`
	TotalUnits      int    `json:"total_units"`
	SkippedBlocks   int    `json:"skipped_blocks"`
	EstimatedPrices int    `json:"estimated_prices"`
}

// OrderEmpty reports a message from which no line item could be recovered.
type OrderEmpty struct {
	MessageID     string `json:"message_id"`
	CustomerName  string `json:"customer_name"`
	Dialect       string `json:"dialect"`
	SkippedBlocks int    `json:"skipped_blocks"`
}

type AgentRegistered struct {
	Timestamp string `json:"timestamp"`
	Port      int    `json:"port"`
	Version   string `json:"version"`
}
