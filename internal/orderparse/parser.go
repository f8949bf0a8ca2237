package orderparse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/comanda/internal/catalog"
)

const (
	// DefaultFallbackPrice is the unit price used when a code cannot be
	// resolved against the catalog.
	DefaultFallbackPrice = 25000.0

	defaultLookupConcurrency = 4
)

// Parser converts raw order messages into structured orders. A Parser holds
// no per-call state and may be shared across goroutines.
type Parser struct {
	grammar       *Grammar
	lookup        catalog.Lookup
	fallbackPrice float64
	concurrency   int
	logger        *slog.Logger
}

type Option func(*Parser)

func WithGrammar(g *Grammar) Option {
	return func(p *Parser) { p.grammar = g }
}

func WithFallbackPrice(price float64) Option {
	return func(p *Parser) { p.fallbackPrice = price }
}

// WithLookupConcurrency bounds the number of catalog lookups in flight for a
// single message. 1 resolves items strictly one after another.
func WithLookupConcurrency(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) { p.logger = logger }
}

// New creates a Parser resolving prices through lookup. A nil lookup marks
// every price as estimated.
func New(lookup catalog.Lookup, opts ...Option) *Parser {
	p := &Parser{
		grammar:       defaultGrammar,
		lookup:        lookup,
		fallbackPrice: DefaultFallbackPrice,
		concurrency:   defaultLookupConcurrency,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Parser) Grammar() *Grammar {
	return p.grammar
}

func (p *Parser) FallbackPrice() float64 {
	return p.fallbackPrice
}

// attempt is the outcome of parsing under one dialect.
type attempt struct {
	dialect Dialect
	seg     Segments
	items   []draftItem
	skipped int
}

// Parse turns a message into an order draft. Malformed text never produces
// an error; the only error returned is the caller's context ending while
// prices are being resolved.
func (p *Parser) Parse(ctx context.Context, msg RawMessage) (*Result, error) {
	g := p.grammar
	text := Clean(msg.Text)

	res := &Result{
		CustomerName: g.vocab.UnknownCustomer,
		LineItems:    []LineItem{},
		Dialect:      msg.Dialect,
	}
	if strings.TrimSpace(text) == "" {
		return res, nil
	}

	primary := msg.Dialect
	if primary == DialectUnknown {
		primary = g.Detect(text)
	}
	if primary == DialectUnknown {
		primary = DialectForSource(msg.Source)
	}

	var chosen *attempt
	var tried []attempt
	for _, d := range fallbackChain(primary, msg.Source) {
		a := p.parseAs(text, d)
		tried = append(tried, a)
		if len(a.items) > 0 {
			chosen = &tried[len(tried)-1]
			break
		}
		p.logger.Debug("no items recovered, trying next dialect", "dialect", d.String(), "message_id", msg.ID)
	}
	if chosen == nil {
		chosen = &tried[0]
	}

	res.Dialect = chosen.dialect
	res.CustomerName = bestCustomer(chosen, tried, g.vocab.UnknownCustomer)
	res.FinalComment = chosen.seg.FinalComment
	res.SkippedBlocks = chosen.skipped

	items, err := p.resolve(ctx, chosen.items)
	if err != nil {
		return nil, err
	}
	res.LineItems = items
	return res, nil
}

// ParseText is Parse for a bare string with no declared dialect.
func (p *Parser) ParseText(ctx context.Context, text string) (*Result, error) {
	return p.Parse(ctx, RawMessage{Text: text})
}

// ParseItems parses an already segmented items block, resolving prices. It
// returns the items and the number of skipped sub-blocks.
func (p *Parser) ParseItems(ctx context.Context, block string, dialect Dialect) ([]LineItem, int, error) {
	drafts, skipped := p.grammar.parseItems(Clean(block), dialect)
	items, err := p.resolve(ctx, drafts)
	if err != nil {
		return nil, skipped, err
	}
	return items, skipped, nil
}

func (p *Parser) parseAs(text string, d Dialect) attempt {
	seg := p.grammar.Segment(text, d)
	items, skipped := p.grammar.parseItems(seg.ItemsBlock, d)
	if skipped > 0 {
		p.logger.Debug("skipped malformed item blocks", "dialect", d.String(), "skipped", skipped)
	}
	return attempt{dialect: d, seg: seg, items: items, skipped: skipped}
}

func (g *Grammar) parseItems(block string, d Dialect) ([]draftItem, int) {
	if strings.TrimSpace(block) == "" {
		return nil, 0
	}
	var (
		items   []draftItem
		skipped int
	)
	for _, lines := range g.splitBlocks(block, d) {
		item, ok := g.parseBlock(lines, d)
		if !ok {
			skipped++
			continue
		}
		items = append(items, item)
	}
	return items, skipped
}

// resolve prices each draft and assigns sequence indices over the final,
// ordered list.
func (p *Parser) resolve(ctx context.Context, drafts []draftItem) ([]LineItem, error) {
	items := make([]LineItem, len(drafts))
	for i, d := range drafts {
		items[i] = LineItem{
			Code:        d.code,
			Description: d.description,
			ItemComment: d.comment,
			Variants:    d.variants,
		}
	}

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.concurrency)
	for i := range items {
		eg.Go(func() error {
			return p.price(ctx, egctx, &items[i])
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return numberItems(items), nil
}

// price fills the unit price of one item. Lookup failures become an
// estimated price; only the caller's context ending is returned.
func (p *Parser) price(parent, ctx context.Context, item *LineItem) error {
	if p.lookup == nil {
		p.estimate(item, nil)
		return nil
	}
	prod, err := p.lookup.Lookup(ctx, item.Code)
	if err == nil {
		item.UnitPrice = prod.UnitPrice
		return nil
	}
	if perr := parent.Err(); perr != nil {
		return fmt.Errorf("resolve price for %s: %w", item.Code, perr)
	}
	p.estimate(item, err)
	return nil
}

func (p *Parser) estimate(item *LineItem, err error) {
	item.UnitPrice = p.fallbackPrice
	item.PriceIsEstimated = true
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		p.logger.Warn("price lookup failed, using estimate", "code", item.Code, "error", err)
		return
	}
	p.logger.Debug("code not in catalog, using estimate", "code", item.Code)
}

// numberItems assigns contiguous 1-based indices to items and their variants
// in slice order.
func numberItems(items []LineItem) []LineItem {
	for i := range items {
		items[i].SequenceIndex = i + 1
		items[i].Variants = numberVariants(items[i].Variants)
	}
	return items
}

// bestCustomer prefers the chosen attempt's customer, then any other
// attempt's, then the sentinel.
func bestCustomer(chosen *attempt, tried []attempt, unknown string) string {
	if chosen.seg.Customer != unknown {
		return chosen.seg.Customer
	}
	for _, a := range tried {
		if a.seg.Customer != unknown {
			return a.seg.Customer
		}
	}
	return unknown
}
