package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by a Lookup when the product code is not in the catalog.
var ErrNotFound = errors.New("product not found")

// Product is the catalog view of an inventory record.
type Product struct {
	Code        string  `json:"code" yaml:"code"`
	Description string  `json:"description,omitempty" yaml:"description"`
	UnitPrice   float64 `json:"unit_price" yaml:"unit_price"`
	Stock       int     `json:"stock,omitempty" yaml:"stock"`
}

// Lookup resolves a product code to its catalog record.
type Lookup interface {
	Lookup(ctx context.Context, code string) (Product, error)
}

// LookupFunc adapts a plain function to the Lookup interface.
type LookupFunc func(ctx context.Context, code string) (Product, error)

func (f LookupFunc) Lookup(ctx context.Context, code string) (Product, error) {
	return f(ctx, code)
}

// NormalizeCode is the stored form of a code: trimmed, upper-cased, interior
// whitespace collapsed to one space.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.Join(strings.Fields(code), " "))
}

// CodeKey is the match key used by every lookup: upper-cased with all
// whitespace removed, so "W807 B" and a document-recovered "W807B" are the
// same product.
func CodeKey(code string) string {
	return strings.ToUpper(strings.Join(strings.Fields(code), ""))
}

// Static is an in-memory price table, used by the offline CLI and in tests.
type Static struct {
	products map[string]Product
}

func NewStatic(products ...Product) *Static {
	s := &Static{products: make(map[string]Product, len(products))}
	for _, p := range products {
		s.products[CodeKey(p.Code)] = p
	}
	return s
}

func (s *Static) Lookup(ctx context.Context, code string) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, err
	}
	p, ok := s.products[CodeKey(code)]
	if !ok {
		return Product{}, fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	return p, nil
}

func (s *Static) Len() int {
	return len(s.products)
}

type priceFile struct {
	Products []Product `yaml:"products"`
}

// LoadStatic reads a YAML price table of the form:
//
//	products:
//	  - code: W807 B
//	    description: Blusa manga corta
//	    unit_price: 32000
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read price file: %w", err)
	}
	var pf priceFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse price file: %w", err)
	}
	for i, p := range pf.Products {
		if strings.TrimSpace(p.Code) == "" {
			return nil, fmt.Errorf("price file entry %d: empty code", i)
		}
	}
	return NewStatic(pf.Products...), nil
}

// Chain tries each lookup in order. It moves on only when a lookup reports
// ErrNotFound; any other error stops the chain.
func Chain(lookups ...Lookup) Lookup {
	return LookupFunc(func(ctx context.Context, code string) (Product, error) {
		for _, l := range lookups {
			p, err := l.Lookup(ctx, code)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return p, err
		}
		return Product{}, fmt.Errorf("%w: %s", ErrNotFound, code)
	})
}
