package orderparse

import "time"

// Source is where a raw order message was copied from.
type Source string

const (
	SourceChatMobile Source = "chat-mobile"
	SourceChatWeb    Source = "chat-web"
	SourceDocument   Source = "document"
)

// RawMessage is a single order message as received. It is consumed once.
type RawMessage struct {
	ID         string
	Source     Source
	Text       string
	Dialect    Dialect // declared dialect; DialectUnknown means detect
	ReceivedAt time.Time
}

// Result is the structured order draft handed to persistence.
type Result struct {
	CustomerName  string     `json:"customerName"`
	FinalComment  string     `json:"finalComment"`
	LineItems     []LineItem `json:"lineItems"`
	Dialect       Dialect    `json:"dialect"`
	SkippedBlocks int        `json:"skippedBlocks"`
}

// LineItem is one product entry of an order.
type LineItem struct {
	SequenceIndex    int       `json:"sequenceIndex"`
	Code             string    `json:"code"`
	Description      string    `json:"description"`
	UnitPrice        float64   `json:"unitPrice"`
	PriceIsEstimated bool      `json:"priceIsEstimated"`
	ItemComment      string    `json:"itemComment"`
	Variants         []Variant `json:"variants"`
}

// Variant is a color/size option and the quantity ordered for it.
type Variant struct {
	SequenceIndex   int    `json:"sequenceIndex"`
	Label           string `json:"label"`
	OrderedQuantity int    `json:"orderedQuantity"`
}

// TotalUnits sums the ordered quantity over all variants.
func (li LineItem) TotalUnits() int {
	n := 0
	for _, v := range li.Variants {
		n += v.OrderedQuantity
	}
	return n
}

// TotalUnits sums ordered units over every line item.
func (r *Result) TotalUnits() int {
	n := 0
	for _, li := range r.LineItems {
		n += li.TotalUnits()
	}
	return n
}

// EstimatedPrices counts line items whose price fell back to the estimate.
func (r *Result) EstimatedPrices() int {
	n := 0
	for _, li := range r.LineItems {
		if li.PriceIsEstimated {
			n++
		}
	}
	return n
}

// Segments is the dialect-specific decomposition of a message.
type Segments struct {
	Customer     string
	ItemsBlock   string
	FinalComment string
}
