package reconciliation

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/fortuna/goalfeed/internal/textnorm"
)

// DefaultThreshold is the minimum score for accepting a candidate.
const DefaultThreshold = 0.6

// Matcher scores loosely written names against each other
type Matcher struct {
	norm *textnorm.Normalizer
}

// NewMatcher creates a matcher using the given normalizer
func NewMatcher(norm *textnorm.Normalizer) *Matcher {
	if norm == nil {
		norm = textnorm.New(textnorm.DefaultStopWords...)
	}
	return &Matcher{norm: norm}
}

var defaultMatcher = NewMatcher(nil)

// Similarity scores a and b with the default matcher
func Similarity(a, b string) float64 {
	return defaultMatcher.Similarity(a, b)
}

// Similarity returns the sequence-alignment ratio (2*M/T over the longest
// matching blocks) of the normalized forms, in [0, 1]. An empty side scores 0.
func (m *Matcher) Similarity(a, b string) float64 {
	na, nb := m.norm.Normalize(a), m.norm.Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	sm := difflib.NewMatcher(strings.Split(na, ""), strings.Split(nb, ""))
	return sm.Ratio()
}

// ComponentScore is the best similarity of query against any non-empty alias.
// Absent aliases do not lower the score; with no alias at all it is 0.
func (m *Matcher) ComponentScore(query string, aliases ...string) float64 {
	best := 0.0
	for _, alias := range aliases {
		if strings.TrimSpace(alias) == "" {
			continue
		}
		if s := m.Similarity(query, alias); s > best {
			best = s
		}
	}
	return best
}

// Component pairs a query string with the alias fields it may match.
type Component struct {
	Query   string
	Aliases []string
}

// CompositeScore is the unweighted mean of the per-component scores.
func (m *Matcher) CompositeScore(components ...Component) float64 {
	if len(components) == 0 {
		return 0
	}
	total := 0.0
	for _, c := range components {
		total += m.ComponentScore(c.Query, c.Aliases...)
	}
	return total / float64(len(components))
}

// Match is the outcome of BestMatch.
type Match[T any] struct {
	Item  T
	Index int
	Score float64
	Found bool
}

// BestMatch returns the highest scoring candidate. A later candidate only
// replaces the leader when its score is strictly greater, so the first of
// equal scores wins. Candidates scoring 0 never lead.
func BestMatch[T any](candidates []T, score func(T) float64) Match[T] {
	best := Match[T]{Index: -1}
	for i, c := range candidates {
		s := score(c)
		if s > best.Score {
			best = Match[T]{Item: c, Index: i, Score: s, Found: true}
		}
	}
	return best
}
