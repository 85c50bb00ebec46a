package reconciliation

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/goalfeed/internal/textnorm"
)

func TestSimilarity_Bounds(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	alphabet := []rune("abcdefg hijFC-é.")
	randomString := func() string {
		n := rng.Intn(14)
		out := make([]rune, n)
		for i := range out {
			out[i] = alphabet[rng.Intn(len(alphabet))]
		}
		return string(out)
	}

	for i := 0; i < 500; i++ {
		a, b := randomString(), randomString()
		s := Similarity(a, b)
		require.GreaterOrEqual(t, s, 0.0, "%q vs %q", a, b)
		require.LessOrEqual(t, s, 1.0, "%q vs %q", a, b)

		if textnorm.Normalize(a) != "" {
			require.Equal(t, 1.0, Similarity(a, a), "%q", a)
		}
	}
}

func TestSimilarity_Examples(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 16.0/23.0, Similarity("Man City", "Manchester City FC"), 1e-9)
	assert.Equal(t, 1.0, Similarity("Arsenal", "Arsenal FC"))
	assert.Equal(t, 1.0, Similarity("Atlético Madrid", "atletico madrid"))
	assert.Zero(t, Similarity("", "Arsenal"))
	assert.Zero(t, Similarity("FC", "Arsenal"))
	assert.Less(t, Similarity("Liverpool", "Everton"), DefaultThreshold)
}

func TestComponentScore_IgnoresAbsentAliases(t *testing.T) {
	t.Parallel()

	m := NewMatcher(nil)
	assert.Equal(t, 1.0, m.ComponentScore("Arsenal", "", "Arsenal FC", "  "))
	assert.Zero(t, m.ComponentScore("Arsenal"))
	assert.Zero(t, m.ComponentScore("Arsenal", "", ""))
}

func TestCompositeScore_Mean(t *testing.T) {
	t.Parallel()

	m := NewMatcher(nil)
	score := m.CompositeScore(
		Component{Query: "Arsenal", Aliases: []string{"Arsenal FC", "ARS"}},
		Component{Query: "Zzz", Aliases: []string{"Chelsea"}},
	)
	assert.InDelta(t, 0.5, score, 1e-9)
	assert.Zero(t, m.CompositeScore())
}

func TestBestMatch_FirstOfEqualScoresWins(t *testing.T) {
	t.Parallel()

	scores := map[string]float64{"a": 0.4, "b": 0.9, "c": 0.9, "d": 0.1}
	best := BestMatch([]string{"a", "b", "c", "d"}, func(s string) float64 { return scores[s] })

	assert.True(t, best.Found)
	assert.Equal(t, "b", best.Item)
	assert.Equal(t, 1, best.Index)
	assert.Equal(t, 0.9, best.Score)
}

func TestBestMatch_ZeroScoresNeverLead(t *testing.T) {
	t.Parallel()

	best := BestMatch([]int{1, 2}, func(int) float64 { return 0 })
	assert.False(t, best.Found)
	assert.Equal(t, -1, best.Index)

	empty := BestMatch[int](nil, func(int) float64 { return 1 })
	assert.False(t, empty.Found)
}
