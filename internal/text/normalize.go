// Package text normalizes generation text before it is handed to the model.
//
// The model is sensitive to stray control characters, smart punctuation, and
// missing sentence-final punctuation; this package applies the small set of
// transformations that keep caller-provided prose well formed without
// changing its wording.
package text

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Punctuation and formatting constants.
const (
	emDash       = "—"
	enDash       = "–"
	figureDash   = "‒"
	ellipsis     = "..."
	ellipsisChar = "…"
)

const whitespaceRegexPattern = `\s+`

// Normalizer prepares generation text for synthesis.
type Normalizer struct {
	whitespacePattern *regexp.Regexp
	punctReplacer     *strings.Replacer
}

// NewNormalizer creates a normalizer with its patterns and replacers compiled
// upfront.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		whitespacePattern: regexp.MustCompile(whitespaceRegexPattern),
		punctReplacer: strings.NewReplacer(
			emDash, "-",
			enDash, "-",
			figureDash, "-",
			ellipsisChar, ellipsis,
			"“", `"`, "”", `"`,
			"‘", "'", "’", "'",
		),
	}
}

// Normalize collapses whitespace, converts smart punctuation to its plain
// ASCII form, and ensures the text ends in sentence-final punctuation. Empty
// input stays empty.
func (n *Normalizer) Normalize(text string) string {
	normalized := n.whitespacePattern.ReplaceAllString(text, " ")
	normalized = n.punctReplacer.Replace(normalized)
	normalized = strings.TrimSpace(normalized)

	return ensureSentenceEnding(normalized)
}

// ensureSentenceEnding appends a period when the text does not already end in
// sentence-ending punctuation.
func ensureSentenceEnding(text string) string {
	if text == "" {
		return ""
	}

	lastChar, _ := utf8.DecodeLastRuneInString(text)
	if !unicode.IsPunct(lastChar) {
		return text + "."
	}

	switch lastChar {
	case '.', '!', '?':
		return text
	default:
		return text + "."
	}
}
