// Package textnorm canonicalizes free-text team names and titles so they can
// be compared across upstream sources.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultStopWords are club suffix tokens that carry no identity.
var DefaultStopWords = []string{
	"fc", "cf", "ac", "afc", "sc", "ssc", "sv", "tsg", "club", "ud", "cd",
}

// Normalizer lower-cases, ASCII-folds and strips stop words from text.
type Normalizer struct {
	stop map[string]struct{}
}

var std = New(DefaultStopWords...)

// New creates a normalizer that drops the given whole-word tokens.
func New(stopWords ...string) *Normalizer {
	stop := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			stop[w] = struct{}{}
		}
	}
	return &Normalizer{stop: stop}
}

// Normalize applies the default normalizer.
func Normalize(text string) string {
	return std.Normalize(text)
}

// Normalize returns the canonical comparison form of text. The result holds
// only [a-z0-9] tokens separated by single spaces, so Normalize is idempotent.
func (n *Normalizer) Normalize(text string) string {
	if text == "" {
		return ""
	}

	folded, err := fold(text)
	if err != nil {
		return ""
	}
	folded = strings.ToLower(folded)

	tokens := strings.FieldsFunc(folded, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})

	kept := tokens[:0]
	for _, tok := range tokens {
		if _, drop := n.stop[tok]; drop {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

// fold decomposes text and drops combining marks and any rune outside ASCII.
// A fresh chain is built per call because transform.Chain is stateful.
func fold(text string) (string, error) {
	t := transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
	)
	out, _, err := transform.String(t, text)
	return out, err
}
