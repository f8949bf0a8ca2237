package orderparse

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	// WhatsApp renders *text* as bold; copy-paste keeps the asterisks.
	boldSpan = regexp.MustCompile(`\*([^*\n]+)\*`)

	invisibles = strings.NewReplacer(
		"\r\n", "\n",
		"\r", "\n",
		"\u00A0", " ",
		"\u202F", " ",
		"\u200B", "",
		"\u200E", "",
		"\u200F", "",
		"\u2060", "",
		"\uFEFF", "",
	)
)

// Clean normalizes pasted text: NFC composition, LF line endings, plain
// spaces, no invisible marks and no WhatsApp bold markers.
func Clean(text string) string {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\uFFFD")
	}
	text = norm.NFC.String(text)
	text = invisibles.Replace(text)
	return boldSpan.ReplaceAllString(text, "$1")
}

// stripSalutation drops the closing "thank you" boilerplate and everything
// after it.
func (g *Grammar) stripSalutation(text string) string {
	loc := g.salutation.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return strings.TrimRight(text[:loc[0]], " \t\n")
}

// splitGarbagePrefix splits line into the leading run of characters that are
// not ASCII letters or digits, and the remainder.
func splitGarbagePrefix(line string) (prefix, rest string) {
	i := strings.IndexFunc(line, isASCIIAlnum)
	if i < 0 {
		return line, ""
	}
	return line[:i], line[i:]
}

// cleanCode recovers a product code mangled by binary-to-text decoding:
// everything outside [A-Za-z0-9- ] is dropped, then all whitespace.
func cleanCode(token string) string {
	var b strings.Builder
	b.Grow(len(token))
	for _, r := range token {
		if r < utf8.RuneSelf && (isASCIIAlnum(r) || r == '-') {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-")
}

// collapseSpaces trims s and reduces interior whitespace runs to one space.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isASCIIAlnum(r rune) bool {
	return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return '0' <= r && r <= '9' }) >= 0
}
