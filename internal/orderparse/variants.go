package orderparse

import (
	"strconv"
	"strings"
)

// ParseVariants reads "- <label>: <quantity>" lines, quantity-label lines
// ("Cantidad: 5") and bare quantity lines ("- 5"). Lines of any other shape
// and lines with a negative or non-integer quantity are dropped. Quantities
// without a breakdown (the unspecified label, or a bare quantity line) merge
// into one aggregate variant; the assorted label is a variant like any other.
func (g *Grammar) ParseVariants(lines []string) []Variant {
	vl := newVariantList(g.vocab.UnspecifiedLabel)
	for _, line := range lines {
		if label, qty, ok := g.parseVariantLine(line); ok {
			vl.add(label, qty)
		}
	}
	return numberVariants(vl.finish())
}

func (g *Grammar) parseVariantLine(line string) (string, int, bool) {
	if m := g.quantityLine.FindStringSubmatch(line); m != nil {
		qty, ok := parseQuantity(m[1])
		return g.vocab.UnspecifiedLabel, qty, ok
	}
	if m := g.bareQuantityLine.FindStringSubmatch(line); m != nil {
		qty, ok := parseQuantity(m[1])
		return g.vocab.UnspecifiedLabel, qty, ok
	}

	m := g.variantLine.FindStringSubmatch(line)
	if m == nil {
		return "", 0, false
	}
	label := collapseSpaces(m[1])
	if label == "" {
		return "", 0, false
	}
	qty, ok := parseQuantity(m[2])
	if !ok {
		return "", 0, false
	}
	if strings.EqualFold(label, g.vocab.UnspecifiedLabel) {
		label = g.vocab.UnspecifiedLabel
	}
	return label, qty, true
}

func parseQuantity(tok string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(tok, "+"))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// variantList accumulates variants in order of appearance, folding every
// unspecified quantity into the first unspecified entry.
type variantList struct {
	unspecified   string
	variants      []Variant
	unspecifiedAt int
}

func newVariantList(unspecified string) *variantList {
	return &variantList{unspecified: unspecified, unspecifiedAt: -1}
}

func (vl *variantList) add(label string, qty int) {
	if label == vl.unspecified {
		if vl.unspecifiedAt >= 0 {
			vl.variants[vl.unspecifiedAt].OrderedQuantity += qty
			return
		}
		vl.unspecifiedAt = len(vl.variants)
	}
	vl.variants = append(vl.variants, Variant{Label: label, OrderedQuantity: qty})
}

// finish returns the variants; an item without any quantity line gets a
// single unspecified variant of zero units.
func (vl *variantList) finish() []Variant {
	if len(vl.variants) == 0 {
		return []Variant{{Label: vl.unspecified}}
	}
	return vl.variants
}

func numberVariants(vs []Variant) []Variant {
	for i := range vs {
		vs[i].SequenceIndex = i + 1
	}
	return vs
}
