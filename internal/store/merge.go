package store

import "reflect"

// Policy governs how incoming records interact with existing records that
// share a key.
type Policy string

const (
	// SkipIfPresent keeps the existing record and drops the incoming one.
	SkipIfPresent Policy = "skip_if_present"

	// Overwrite replaces the existing record in place.
	Overwrite Policy = "overwrite"

	// PrependNewOnly places unseen records before existing ones.
	PrependNewOnly Policy = "prepend_new_only"
)

// KeyFunc extracts the merge key of a record. "" marks an unkeyable record.
type KeyFunc[T any] func(T) string

// Options configures a merge.
type Options[T any] struct {
	Policy Policy

	// MaxLen truncates the merged collection to its first MaxLen records.
	MaxLen int

	// Combine decides the stored record under Overwrite when a key already
	// exists. It must be idempotent: Combine(Combine(o, n), n) == Combine(o, n).
	Combine func(old, incoming T) T
}

// MergeStats counts what a merge did.
type MergeStats struct {
	Added     int `json:"added"`
	Replaced  int `json:"replaced"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
	Dropped   int `json:"dropped"`
	Truncated int `json:"truncated"`
}

// Merge reconciles incoming with existing. The result never holds two
// records with the same key and preserves existing order except where the
// policy prepends or replaces in place.
func Merge[T any](existing, incoming []T, key KeyFunc[T], opts Options[T]) ([]T, MergeStats) {
	var stats MergeStats

	policy := opts.Policy
	if policy == "" {
		policy = Overwrite
	}

	base := make([]T, 0, len(existing)+len(incoming))
	index := make(map[string]int, len(existing)+len(incoming))
	for _, rec := range existing {
		k := key(rec)
		if k == "" {
			stats.Dropped++
			continue
		}
		if _, dup := index[k]; dup {
			stats.Dropped++
			continue
		}
		index[k] = len(base)
		base = append(base, rec)
	}

	var fresh []T
	freshIndex := make(map[string]int)

	for _, rec := range incoming {
		k := key(rec)
		if k == "" {
			stats.Dropped++
			continue
		}

		if pos, ok := index[k]; ok {
			if policy != Overwrite {
				stats.Skipped++
				continue
			}
			next := combine(opts.Combine, base[pos], rec)
			if reflect.DeepEqual(base[pos], next) {
				stats.Unchanged++
			} else {
				stats.Replaced++
			}
			base[pos] = next
			continue
		}

		if pos, ok := freshIndex[k]; ok {
			if policy == Overwrite {
				fresh[pos] = combine(opts.Combine, fresh[pos], rec)
			} else {
				stats.Skipped++
			}
			continue
		}

		freshIndex[k] = len(fresh)
		fresh = append(fresh, rec)
		stats.Added++
	}

	var out []T
	if policy == PrependNewOnly {
		out = make([]T, 0, len(fresh)+len(base))
		out = append(out, fresh...)
		out = append(out, base...)
	} else {
		out = append(base, fresh...)
	}

	if opts.MaxLen > 0 && len(out) > opts.MaxLen {
		stats.Truncated = len(out) - opts.MaxLen
		out = out[:opts.MaxLen]
	}
	return out, stats
}

func combine[T any](fn func(old, incoming T) T, old, incoming T) T {
	if fn == nil {
		return incoming
	}
	return fn(old, incoming)
}

// Keys returns the set of keys present in items.
func Keys[T any](items []T, key KeyFunc[T]) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, rec := range items {
		if k := key(rec); k != "" {
			out[k] = struct{}{}
		}
	}
	return out
}
