package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rec struct {
	ID string
	V  int
}

func recKey(r rec) string { return r.ID }

func TestMerge_OverwriteUpdatesInPlaceAndAppends(t *testing.T) {
	t.Parallel()

	existing := []rec{{"a", 1}}
	incoming := []rec{{"a", 2}, {"b", 3}}

	out, stats := Merge(existing, incoming, recKey, Options[rec]{Policy: Overwrite})

	assert.Equal(t, []rec{{"a", 2}, {"b", 3}}, out)
	assert.Equal(t, 1, stats.Added)
	assert.Equal(t, 1, stats.Replaced)
}

func TestMerge_SkipIfPresentKeepsExisting(t *testing.T) {
	t.Parallel()

	existing := []rec{{"a", 1}}
	incoming := []rec{{"a", 2}, {"b", 3}}

	out, stats := Merge(existing, incoming, recKey, Options[rec]{Policy: SkipIfPresent})

	assert.Equal(t, []rec{{"a", 1}, {"b", 3}}, out)
	assert.Equal(t, 1, stats.Added)
	assert.Equal(t, 1, stats.Skipped)
}

func TestMerge_PrependNewOnlyWithCap(t *testing.T) {
	t.Parallel()

	existing := []rec{{"c", 1}, {"d", 2}, {"e", 3}}
	incoming := []rec{{"a", 9}, {"c", 7}, {"b", 8}}

	out, stats := Merge(existing, incoming, recKey, Options[rec]{Policy: PrependNewOnly, MaxLen: 4})

	assert.Equal(t, []rec{{"a", 9}, {"b", 8}, {"c", 1}, {"d", 2}}, out)
	assert.Equal(t, 2, stats.Added)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Truncated)

	again, stats := Merge(out, incoming, recKey, Options[rec]{Policy: PrependNewOnly, MaxLen: 4})
	assert.Equal(t, out, again)
	assert.Zero(t, stats.Added)
}

func TestMerge_InBatchDuplicates(t *testing.T) {
	t.Parallel()

	incoming := []rec{{"x", 1}, {"y", 2}, {"x", 3}}

	skip, _ := Merge(nil, incoming, recKey, Options[rec]{Policy: SkipIfPresent})
	assert.Equal(t, []rec{{"x", 1}, {"y", 2}}, skip)

	over, _ := Merge(nil, incoming, recKey, Options[rec]{Policy: Overwrite})
	assert.Equal(t, []rec{{"x", 3}, {"y", 2}}, over)
}

func TestMerge_DropsUnkeyableAndDuplicateExisting(t *testing.T) {
	t.Parallel()

	existing := []rec{{"a", 1}, {"", 5}, {"a", 2}}
	out, stats := Merge(existing, []rec{{"", 9}}, recKey, Options[rec]{})

	assert.Equal(t, []rec{{"a", 1}}, out)
	assert.Equal(t, 3, stats.Dropped)
}

func TestMerge_CombinePreservesFields(t *testing.T) {
	t.Parallel()

	keepMax := func(old, in rec) rec {
		if old.V > in.V {
			in.V = old.V
		}
		return in
	}
	out, stats := Merge([]rec{{"a", 5}}, []rec{{"a", 2}}, recKey, Options[rec]{Policy: Overwrite, Combine: keepMax})

	assert.Equal(t, []rec{{"a", 5}}, out)
	assert.Equal(t, 1, stats.Unchanged)
	assert.Zero(t, stats.Replaced)
}

func TestMerge_IdempotentAndUnique(t *testing.T) {
	t.Parallel()

	states := [][]rec{
		nil,
		{{"a", 1}},
		{{"a", 1}, {"b", 2}, {"c", 3}},
		{{"b", 0}, {"b", 1}, {"", 4}},
	}
	batches := [][]rec{
		nil,
		{{"a", 2}},
		{{"d", 1}, {"a", 9}, {"d", 2}},
		{{"", 1}, {"c", 3}, {"e", 5}},
	}

	for _, policy := range []Policy{SkipIfPresent, Overwrite} {
		for si, s := range states {
			for bi, in := range batches {
				name := fmt.Sprintf("%s/s%d/b%d", policy, si, bi)
				opts := Options[rec]{Policy: policy}

				once, _ := Merge(s, in, recKey, opts)
				twice, _ := Merge(once, in, recKey, opts)
				require.Equal(t, once, twice, name)

				seen := map[string]bool{}
				for _, r := range twice {
					require.False(t, seen[r.ID], "%s: duplicate key %q", name, r.ID)
					seen[r.ID] = true
				}
			}
		}
	}
}

func TestKeys(t *testing.T) {
	t.Parallel()

	keys := Keys([]rec{{"a", 1}, {"", 2}, {"b", 3}}, recKey)
	assert.Len(t, keys, 2)
	assert.Contains(t, keys, "a")
}

func TestCompositeKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "h1\x1f2025-01-10", CompositeKey(" h1 ", "2025-01-10"))
	assert.Empty(t, CompositeKey("h1", ""))
	assert.Empty(t, HighlightKey(Highlight{HighlightID: "h1"}))
}
