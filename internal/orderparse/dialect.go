package orderparse

import (
	"fmt"
	"strings"
)

// Dialect classifies the structural markers of an order message.
type Dialect int

const (
	DialectUnknown Dialect = iota
	DialectMobileEmoji
	DialectWebNoEmoji
	DialectDocumentExtract
)

var dialectNames = map[Dialect]string{
	DialectUnknown:         "unknown",
	DialectMobileEmoji:     "mobile-emoji",
	DialectWebNoEmoji:      "web-no-emoji",
	DialectDocumentExtract: "document-extract",
}

func (d Dialect) String() string {
	if s, ok := dialectNames[d]; ok {
		return s
	}
	return fmt.Sprintf("dialect(%d)", int(d))
}

// ParseDialect accepts the names produced by String. The empty string and
// "auto" map to DialectUnknown.
func ParseDialect(s string) (Dialect, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "auto" {
		return DialectUnknown, nil
	}
	for d, name := range dialectNames {
		if name == s {
			return d, nil
		}
	}
	return DialectUnknown, fmt.Errorf("unknown dialect %q", s)
}

func (d Dialect) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Dialect) UnmarshalText(b []byte) error {
	parsed, err := ParseDialect(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DialectForSource is the dialect a source usually produces. It is the first
// guess when detection is inconclusive and the second one otherwise.
func DialectForSource(src Source) Dialect {
	switch src {
	case SourceChatMobile:
		return DialectMobileEmoji
	case SourceChatWeb:
		return DialectWebNoEmoji
	case SourceDocument:
		return DialectDocumentExtract
	default:
		return DialectUnknown
	}
}

// fallbackChain lists the dialects to try, in order: primary, the dialect of
// the message source, then mobile, web and document. Unknown and repeated
// entries are left out.
func fallbackChain(primary Dialect, src Source) []Dialect {
	candidates := []Dialect{
		primary,
		DialectForSource(src),
		DialectMobileEmoji,
		DialectWebNoEmoji,
		DialectDocumentExtract,
	}
	chain := make([]Dialect, 0, len(candidates))
	seen := make(map[Dialect]bool, len(candidates))
	for _, d := range candidates {
		if d == DialectUnknown || seen[d] {
			continue
		}
		seen[d] = true
		chain = append(chain, d)
	}
	return chain
}

// Detect classifies text using the default grammar.
func Detect(text string) Dialect {
	return defaultGrammar.Detect(text)
}

// Detect applies the ordered detection policy; the first rule that matches wins.
func (g *Grammar) Detect(text string) Dialect {
	text = Clean(text)
	if strings.TrimSpace(text) == "" {
		return DialectUnknown
	}

	if g.hasBulletLine(text) &&
		(g.decoratedCustomer.MatchString(text) || g.decoratedSection.MatchString(text)) {
		return DialectMobileEmoji
	}

	web := g.rules[DialectWebNoEmoji]
	plainMarkers := web.customer.MatchString(text) && web.section.MatchString(text) && !g.hasGlyph(text)
	if plainMarkers || g.placeholderMarker.MatchString(text) {
		return DialectWebNoEmoji
	}

	for _, line := range strings.Split(text, "\n") {
		if g.isGarbledItemLine(line) {
			return DialectDocumentExtract
		}
	}

	return DialectUnknown
}

func (g *Grammar) hasBulletLine(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if _, ok := g.trimBullet(line); ok {
			return true
		}
	}
	return false
}

func (g *Grammar) hasGlyph(text string) bool {
	for _, glyph := range g.vocab.Glyphs.all() {
		if strings.Contains(text, glyph) {
			return true
		}
	}
	return false
}

// isGarbledItemLine reports whether line is an item header preceded by a run
// of characters left over from failed glyph decoding.
func (g *Grammar) isGarbledItemLine(line string) bool {
	prefix, rest := splitGarbagePrefix(line)
	if strings.TrimSpace(prefix) == "" || strings.Trim(prefix, " \t-") == "" {
		return false
	}
	_, ok := g.parseHeader(rest, DialectDocumentExtract)
	return ok
}
