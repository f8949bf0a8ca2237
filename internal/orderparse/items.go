package orderparse

import (
	"regexp"
	"strings"
)

const maxCodeLen = 20

var codeToken = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 \-]*$`)

// blockState is the position of the sub-block state machine.
type blockState int

const (
	awaitingItemHeader blockState = iota
	inItemBody
	inVariantList
	inItemComment
)

func (s blockState) String() string {
	switch s {
	case awaitingItemHeader:
		return "awaiting-item-header"
	case inItemBody:
		return "in-item-body"
	case inVariantList:
		return "in-variant-list"
	case inItemComment:
		return "in-item-comment"
	default:
		return "invalid"
	}
}

type itemHeader struct {
	code        string
	description string
}

// draftItem is a parsed sub-block before price resolution and numbering.
type draftItem struct {
	itemHeader
	comment  string
	variants []Variant
}

// splitBlocks cuts an items block into per-item line groups. Lines before the
// first delimiter form their own group so that an item missing its bullet is
// still tried, and prose is counted as a skipped block. A bullet dialect whose
// block carries no bullet at all is scanned for header lines instead.
func (g *Grammar) splitBlocks(block string, dialect Dialect) [][]string {
	var (
		blocks  [][]string
		current []string
	)
	flush := func() {
		if hasContent(current) {
			blocks = append(blocks, current)
		}
		current = nil
	}

	bullets := g.rules[dialect].bulletSplit && g.hasBulletLine(block)
	for _, line := range strings.Split(block, "\n") {
		if bullets {
			if _, ok := g.trimBullet(line); ok {
				flush()
				current = append(current, line)
				continue
			}
		} else if !g.isBodyLine(line) {
			if _, ok := g.parseHeader(line, dialect); ok {
				flush()
			}
		}
		current = append(current, line)
	}
	flush()
	return blocks
}

// parseBlock runs the state machine over one sub-block. It reports false
// when the first non-blank line is not an item header.
func (g *Grammar) parseBlock(lines []string, dialect Dialect) (draftItem, bool) {
	var (
		item     draftItem
		state    = awaitingItemHeader
		comment  []string
		variants = newVariantList(g.vocab.UnspecifiedLabel)
	)

	for _, line := range lines {
		blank := strings.TrimSpace(line) == ""

		switch state {
		case awaitingItemHeader:
			if blank {
				continue
			}
			h, ok := g.parseHeader(line, dialect)
			if !ok {
				return draftItem{}, false
			}
			item.itemHeader = h
			state = inItemBody
			continue
		case inItemComment:
			if blank {
				state = inItemBody
				continue
			}
		default:
			if blank {
				continue
			}
		}

		if m := g.itemComment.FindStringSubmatch(line); m != nil {
			comment = append(comment, m[1])
			state = inItemComment
			continue
		}
		if label, qty, ok := g.parseVariantLine(line); ok {
			variants.add(label, qty)
			state = inVariantList
			continue
		}
		if g.isQuantityShaped(line) {
			// Variant-shaped but with an invalid quantity: dropped.
			state = inVariantList
			continue
		}
		if state == inItemComment {
			comment = append(comment, line)
		}
	}

	if state == awaitingItemHeader {
		return draftItem{}, false
	}
	item.comment = g.cutFinalComment(collapseSpaces(strings.Join(comment, " ")))
	item.variants = variants.finish()
	return item, true
}

// parseHeader matches "[bullet] <code> – <description>". Document text has
// its garbage prefix removed and its code cleaned; other dialects keep the
// code as written, which may contain spaces ("W807 B"). A header without a
// bullet needs a digit in its code.
func (g *Grammar) parseHeader(line string, dialect Dialect) (itemHeader, bool) {
	line = strings.TrimSpace(line)
	rest, bulleted := g.trimBullet(line)
	if bulleted {
		line = rest
	}
	rules := g.rules[dialect]
	if rules.garbledCodes {
		_, line = splitGarbagePrefix(line)
	}

	rawCode, desc, ok := splitHeader(line)
	if !ok {
		return itemHeader{}, false
	}
	desc = collapseSpaces(desc)
	if desc == "" {
		return itemHeader{}, false
	}

	var code string
	if rules.garbledCodes {
		if looksLikeProse(rawCode) {
			return itemHeader{}, false
		}
		code = cleanCode(rawCode)
	} else {
		code = collapseSpaces(rawCode)
		if !codeToken.MatchString(code) {
			return itemHeader{}, false
		}
	}
	if code == "" || len(code) > maxCodeLen {
		return itemHeader{}, false
	}
	// Without a bullet to delimit items, only code-like tokens start one. This
	// holds in every dialect, including a bullet dialect scanning bullet-less
	// text.
	if !bulleted && !hasDigit(code) {
		return itemHeader{}, false
	}
	return itemHeader{code: code, description: desc}, true
}

// splitHeader cuts at the first en/em dash, else the first spaced hyphen,
// else the first hyphen.
func splitHeader(line string) (code, desc string, ok bool) {
	for _, sep := range []string{"–", "—", " - "} {
		if i := strings.Index(line, sep); i > 0 {
			return line[:i], line[i+len(sep):], true
		}
	}
	if i := strings.Index(line, "-"); i > 0 {
		return line[:i], line[i+1:], true
	}
	return "", "", false
}

// trimBullet reports whether line starts with an item bullet glyph and
// returns the text after it.
func (g *Grammar) trimBullet(line string) (string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	for _, b := range g.vocab.Glyphs.Bullet {
		if b != "" && strings.HasPrefix(trimmed, b) {
			rest := strings.TrimPrefix(trimmed[len(b):], "\uFE0F")
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}

// isBodyLine reports lines that belong inside an item: variants, quantities
// and comments.
func (g *Grammar) isBodyLine(line string) bool {
	return g.isQuantityShaped(line) || g.itemComment.MatchString(line)
}

func (g *Grammar) isQuantityShaped(line string) bool {
	return g.variantLine.MatchString(line) ||
		g.quantityLine.MatchString(line) ||
		g.bareQuantityLine.MatchString(line)
}

// looksLikeProse rejects code tokens containing a lowercase word, which
// product codes never have.
func looksLikeProse(s string) bool {
	run := 0
	for _, r := range s {
		if 'a' <= r && r <= 'z' {
			run++
			if run >= 4 {
				return true
			}
			continue
		}
		run = 0
	}
	return false
}

func hasContent(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return true
		}
	}
	return false
}
