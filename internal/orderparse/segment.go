package orderparse

import "strings"

// Segment splits cleaned text into customer line, items block and final
// comment under the marker rules of dialect. A missing section header gives
// an empty ItemsBlock; it is never an error.
func (g *Grammar) Segment(text string, dialect Dialect) Segments {
	text = g.stripSalutation(text)

	seg := Segments{
		Customer:     g.vocab.UnknownCustomer,
		FinalComment: g.findFinalComment(text),
	}

	rules, ok := g.rules[dialect]
	if !ok {
		return seg
	}

	if m := rules.customer.FindStringSubmatch(text); m != nil {
		if name := collapseSpaces(m[1]); name != "" {
			seg.Customer = name
		}
	}

	loc := rules.section.FindStringIndex(text)
	if loc == nil {
		return seg
	}
	block := text[loc[1]:]
	if end := g.finalComment.FindStringIndex(block); end != nil {
		block = block[:end[0]]
	}
	seg.ItemsBlock = strings.Trim(block, "\n")
	return seg
}

func (g *Grammar) findFinalComment(text string) string {
	m := g.finalComment.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// cutFinalComment truncates s where a concatenated final-comment marker
// begins.
func (g *Grammar) cutFinalComment(s string) string {
	if loc := g.finalComment.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	return strings.TrimSpace(s)
}
