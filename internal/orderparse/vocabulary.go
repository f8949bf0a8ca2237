package orderparse

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Vocabulary is the marker text used by order messages. The defaults match
// the Spanish templates the shop's customers send; a YAML file can override
// any field.
type Vocabulary struct {
	CustomerLabel     string   `yaml:"customer_label"`
	SectionLabel      string   `yaml:"section_label"`
	FinalCommentLabel string   `yaml:"final_comment_label"`
	ItemCommentLabel  string   `yaml:"item_comment_label"`
	QuantityLabels    []string `yaml:"quantity_labels"`
	QuantityUnits     []string `yaml:"quantity_units"`
	Salutations       []string `yaml:"salutations"`
	UnknownCustomer   string   `yaml:"unknown_customer"`
	AssortedLabel     string   `yaml:"assorted_label"`
	UnspecifiedLabel  string   `yaml:"unspecified_label"`
	Glyphs            Glyphs   `yaml:"glyphs"`
}

// Glyphs are the decorative characters of the emoji templates.
type Glyphs struct {
	Customer     []string `yaml:"customer"`
	Section      []string `yaml:"section"`
	Comment      []string `yaml:"comment"`
	Bullet       []string `yaml:"bullet"`
	Placeholders []string `yaml:"placeholders"`
}

func (g Glyphs) all() []string {
	out := make([]string, 0, len(g.Customer)+len(g.Section)+len(g.Comment)+len(g.Bullet))
	out = append(out, g.Customer...)
	out = append(out, g.Section...)
	out = append(out, g.Comment...)
	return append(out, g.Bullet...)
}

// DefaultVocabulary returns the built-in marker vocabulary.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		CustomerLabel:     "Cliente",
		SectionLabel:      "Detalle del pedido",
		FinalCommentLabel: "Comentario final",
		ItemCommentLabel:  "Comentario",
		QuantityLabels:    []string{"Cantidad", "Cant."},
		QuantityUnits:     []string{"und", "unds", "uds", "unidades", "pares", "pzs"},
		Salutations: []string{
			"Gracias por su pedido",
			"Gracias por tu pedido",
			"Gracias por su compra",
			"Gracias por tu compra",
		},
		UnknownCustomer:  "Cliente desconocido",
		AssortedLabel:    "Surtido",
		UnspecifiedLabel: "Sin especificar",
		Glyphs: Glyphs{
			Customer:     []string{"👤", "🙋"},
			Section:      []string{"🛒", "📦", "🧾"},
			Comment:      []string{"📝", "💬"},
			Bullet:       []string{"🔹", "🔸", "▪"},
			Placeholders: []string{"\uFFFD", "?"},
		},
	}
}

// LoadVocabulary reads a YAML vocabulary file. Fields left out keep their
// default value.
func LoadVocabulary(path string) (Vocabulary, error) {
	v := DefaultVocabulary()
	data, err := os.ReadFile(path)
	if err != nil {
		return v, fmt.Errorf("read vocabulary: %w", err)
	}
	if err := yaml.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("parse vocabulary: %w", err)
	}
	if err := v.validate(); err != nil {
		return v, err
	}
	return v, nil
}

func (v Vocabulary) validate() error {
	required := map[string]string{
		"customer_label":      v.CustomerLabel,
		"section_label":       v.SectionLabel,
		"final_comment_label": v.FinalCommentLabel,
		"item_comment_label":  v.ItemCommentLabel,
		"unknown_customer":    v.UnknownCustomer,
		"assorted_label":      v.AssortedLabel,
		"unspecified_label":   v.UnspecifiedLabel,
	}
	for field, val := range required {
		if strings.TrimSpace(val) == "" {
			return fmt.Errorf("vocabulary: %s must not be empty", field)
		}
	}
	if strings.EqualFold(v.AssortedLabel, v.UnspecifiedLabel) {
		return fmt.Errorf("vocabulary: assorted_label and unspecified_label must differ")
	}
	if len(v.Glyphs.Bullet) == 0 {
		return fmt.Errorf("vocabulary: at least one bullet glyph is required")
	}
	return nil
}

// dialectRules holds the marker patterns that differ per dialect.
type dialectRules struct {
	customer *regexp.Regexp
	section  *regexp.Regexp
	// bulletSplit marks dialects whose items are delimited by a bullet glyph
	// rather than found by scanning for header lines.
	bulletSplit bool
	// garbledCodes enables code cleanup for text recovered from documents.
	garbledCodes bool
}

// Grammar is a compiled Vocabulary. It is immutable and safe for
// concurrent use.
type Grammar struct {
	vocab Vocabulary
	rules map[Dialect]dialectRules

	decoratedCustomer *regexp.Regexp
	decoratedSection  *regexp.Regexp
	placeholderMarker *regexp.Regexp
	finalComment      *regexp.Regexp
	itemComment       *regexp.Regexp
	salutation        *regexp.Regexp
	variantLine       *regexp.Regexp
	quantityLine      *regexp.Regexp
	bareQuantityLine  *regexp.Regexp
}

var defaultGrammar = MustCompile(DefaultVocabulary())

// DefaultGrammar returns the grammar built from DefaultVocabulary.
func DefaultGrammar() *Grammar {
	return defaultGrammar
}

// MustCompile is Compile for vocabularies known to be valid.
func MustCompile(v Vocabulary) *Grammar {
	g, err := Compile(v)
	if err != nil {
		panic(err)
	}
	return g
}

// Compile builds the per-dialect marker patterns from a vocabulary.
func Compile(v Vocabulary) (*Grammar, error) {
	if err := v.validate(); err != nil {
		return nil, err
	}

	customer := label(v.CustomerLabel)
	section := label(v.SectionLabel)
	glyphCustomer := alternation(v.Glyphs.Customer) + `\x{FE0F}?`
	glyphSection := alternation(v.Glyphs.Section) + `\x{FE0F}?`
	placeholder := alternation(v.Glyphs.Placeholders)

	mobileCustomer := `[ \t]*(?:` + glyphCustomer + `[ \t]*)?`
	mobileSection := `[ \t]*(?:` + glyphSection + `[ \t]*)?`
	webPrefix := `[ \t]*(?:(?:` + placeholder + `)+[ \t]*)?`
	docPrefix := `[^A-Za-z0-9\n]*`

	g := &Grammar{
		vocab: v,
		rules: map[Dialect]dialectRules{
			DialectMobileEmoji: {
				customer:    customerPattern(mobileCustomer, customer),
				section:     sectionPattern(mobileSection, section),
				bulletSplit: true,
			},
			DialectWebNoEmoji: {
				customer: customerPattern(webPrefix, customer),
				section:  sectionPattern(webPrefix, section),
			},
			DialectDocumentExtract: {
				customer:     customerPattern(docPrefix, customer),
				section:      sectionPattern(docPrefix, section),
				garbledCodes: true,
			},
		},
		decoratedCustomer: customerPattern(`[ \t]*`+glyphCustomer+`[ \t]*`, customer),
		decoratedSection:  sectionPattern(`[ \t]*`+glyphSection+`[ \t]*`, section),
		placeholderMarker: regexp.MustCompile(`(?i)(?:` + placeholder + `)+[ \t]*(?:` + customer + `|` + section + `)[ \t]*:`),
		finalComment:      regexp.MustCompile(`(?i)` + label(v.FinalCommentLabel) + `[ \t]*:[ \t]*([^\n]*)`),
		itemComment: regexp.MustCompile(`(?i)^[ \t]*(?:[-•*][ \t]*)?(?:` + alternation(v.Glyphs.Comment) + `\x{FE0F}?[ \t]*)?` +
			label(v.ItemCommentLabel) + `[ \t]*:[ \t]*(.*)$`),
		salutation:       regexp.MustCompile(`(?i)(?:¡[ \t]*)?(?:` + labels(v.Salutations) + `)`),
		variantLine:      regexp.MustCompile(`(?i)^[ \t]*[-–•*][ \t]*([^:]+?)[ \t]*:[ \t]*(\S+)(?:[ \t]+(?:` + labels(v.QuantityUnits) + `)\.?)?[ \t]*$`),
		quantityLine:     regexp.MustCompile(`(?i)^[ \t]*(?:[-–•*][ \t]*)?(?:` + labels(v.QuantityLabels) + `)[ \t]*:?[ \t]*(\S+)(?:[ \t]+(?:` + labels(v.QuantityUnits) + `)\.?)?[ \t]*$`),
		bareQuantityLine: regexp.MustCompile(`(?i)^[ \t]*[-–•*][ \t]*([+\-]?\d\S*)(?:[ \t]+(?:` + labels(v.QuantityUnits) + `)\.?)?[ \t]*$`),
	}
	return g, nil
}

// Vocabulary returns the vocabulary the grammar was compiled from.
func (g *Grammar) Vocabulary() Vocabulary {
	return g.vocab
}

func customerPattern(prefix, customer string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)^` + prefix + customer + `[ \t]*:[ \t]*([^\n]*)$`)
}

func sectionPattern(prefix, section string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)^` + prefix + section + `[ \t]*:`)
}

// label turns a marker phrase into a pattern that tolerates any run of
// spaces between its words.
func label(phrase string) string {
	words := strings.Fields(phrase)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(words, `[ \t]+`)
}

func labels(phrases []string) string {
	parts := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, label(p))
		}
	}
	if len(parts) == 0 {
		// Never matches: an empty class.
		return `[^\x00-\x{10FFFF}]`
	}
	return strings.Join(parts, "|")
}

func alternation(glyphs []string) string {
	parts := make([]string, 0, len(glyphs))
	for _, g := range glyphs {
		if g != "" {
			parts = append(parts, regexp.QuoteMeta(g))
		}
	}
	if len(parts) == 0 {
		return `[^\x00-\x{10FFFF}]`
	}
	return `(?:` + strings.Join(parts, "|") + `)`
}
