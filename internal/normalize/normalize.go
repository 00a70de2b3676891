// Package normalize turns raw answer text into the canonical form stored
// under a field's English key. The rules are a closed policy table keyed by
// field category, not by field name, so new fields pick up behavior by
// classification rather than by string matching.
package normalize

import "strings"

// Category classifies a field for normalization purposes.
type Category int

const (
	// FreeText keeps the answer as spoken, trimmed only.
	FreeText Category = iota
	// ProperNoun title-cases each token (names, places).
	ProperNoun
	// Numeric keeps digits only (ages, counts).
	Numeric
)

func (c Category) String() string {
	switch c {
	case ProperNoun:
		return "proper_noun"
	case Numeric:
		return "numeric"
	default:
		return "free_text"
	}
}

// properNounKeys and numericKeys are the field keys with special handling.
// Everything else is free text.
var (
	properNounKeys = map[string]bool{
		"name":     true,
		"location": true,
	}
	numericKeys = map[string]bool{
		"age": true,
	}
)

// CategoryFor returns the normalization category for a field key.
func CategoryFor(fieldKey string) Category {
	switch {
	case properNounKeys[fieldKey]:
		return ProperNoun
	case numericKeys[fieldKey]:
		return Numeric
	default:
		return FreeText
	}
}

// Apply normalizes text according to the category. It is deterministic and
// idempotent for ProperNoun and Numeric. Casing is ASCII-only: transcripts
// reach this point already translated to English, and regional scripts pass
// through untouched.
func Apply(text string, cat Category) string {
	switch cat {
	case ProperNoun:
		return titleCase(text)
	case Numeric:
		return digitsOnly(text)
	default:
		return strings.TrimSpace(text)
	}
}

func titleCase(text string) string {
	words := strings.Split(strings.TrimSpace(text), " ")
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		out = append(out, upperFirst(w))
	}
	return strings.Join(out, " ")
}

func upperFirst(w string) string {
	lower := strings.ToLower(w)
	c := lower[0]
	if c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + lower[1:]
	}
	return lower
}

func digitsOnly(text string) string {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
