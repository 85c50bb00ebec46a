package jobs

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/fortuna/goalfeed/internal/ingest"
	"github.com/fortuna/goalfeed/internal/platform/logging"
	"github.com/fortuna/goalfeed/internal/reconciliation"
	"github.com/fortuna/goalfeed/internal/store"
)

// Pipeline is the fetch, reconcile, build and merge cycle shared by all jobs.
// R is the raw upstream item and T the stored record.
type Pipeline[R, T any] struct {
	JobName string
	Source  Source[R]

	// Describe derives the match descriptor of an item. Without an Engine
	// items are not reconciled and Build receives a zero Outcome.
	Describe   func(R) (reconciliation.Descriptor, bool)
	Engine     *reconciliation.Engine
	Candidates func(ctx context.Context) []reconciliation.Source

	// ItemKey keys raw items in the same space as Key, so that items already
	// stored can be skipped before reconciliation. Optional.
	ItemKey func(R) string

	// Build turns an item into a record. prior is the stored record under
	// ItemKey(item), when there is one.
	Build func(ctx context.Context, item R, out reconciliation.Outcome, prior *T) (T, bool)

	Key   store.KeyFunc[T]
	Store *store.JSONFile[T]
	Merge store.Options[T]

	// Keep prunes the merged collection; fresh reports whether the record was
	// produced by this run.
	Keep  func(rec T, fresh bool) bool
	Order func([]T)

	// Snapshot drops stored records this run did not produce, once a fetch
	// succeeded without errors and produced at least one record.
	Snapshot bool

	Logger *logging.Logger
	Now    func() time.Time
}

// Name returns the job name.
func (p *Pipeline[R, T]) Name() string {
	return p.JobName
}

// Run implements Job.
func (p *Pipeline[R, T]) Run(ctx context.Context) Summary {
	return p.RunOnce(ctx)
}

// RunOnce executes one cycle. A failed fetch adds nothing and leaves the
// stored records intact; the artifact is saved on every run.
func (p *Pipeline[R, T]) RunOnce(ctx context.Context) Summary {
	now := p.Now
	if now == nil {
		now = time.Now
	}
	logger := p.Logger
	if logger == nil {
		logger = logging.FromContext(ctx)
	}
	logger = logger.With("job", p.JobName, "target", p.Store.Path)
	rep := ReporterFrom(ctx)

	sum := Summary{Job: p.JobName, Target: p.Store.Path, Status: StatusRunning, Started: now()}

	existing, state := p.Store.Load()
	if state == store.StateCorrupt {
		logger.Warn("stored artifact unreadable, starting empty")
	}
	onDisk := make(map[string]int, len(existing))
	for i, rec := range existing {
		if k := p.Key(rec); k != "" {
			onDisk[k] = i
		}
	}
	dedupeStored := p.Merge.Policy != store.Overwrite && p.Merge.Policy != ""

	items, err := p.Source.Fetch(ctx)
	fetchClean := err == nil
	if err != nil {
		var partial *ingest.PartialError
		if errors.As(err, &partial) {
			sum.Errors += partial.Count
			logger.Warn("fetch partially failed", "failures", partial.Count, "error", err)
		} else {
			sum.Errors++
			items = nil
			logger.Error("fetch failed", "error", err)
		}
		sum.LastError = err.Error()
		rep.OnJobError(p.JobName, err)
	}
	sum.Fetched = len(items)

	var candidates []reconciliation.Source
	if p.Engine != nil && p.Candidates != nil && len(items) > 0 {
		candidates = p.Candidates(ctx)
	}

	seenItems := make(map[string]struct{}, len(items))
	seenKeys := make(map[string]struct{}, len(items))
	incoming := make([]T, 0, len(items))

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			sum.Errors++
			sum.LastError = err.Error()
			fetchClean = false
			logger.Warn("run canceled, saving partial results", "processed", i, "total", len(items))
			break
		}
		rep.OnProgress(p.JobName, i+1, len(items))

		var prior *T
		if p.ItemKey != nil {
			k := p.ItemKey(item)
			if k == "" {
				sum.Skipped++
				continue
			}
			if _, dup := seenItems[k]; dup {
				sum.Skipped++
				continue
			}
			seenItems[k] = struct{}{}
			if idx, ok := onDisk[k]; ok {
				if dedupeStored {
					sum.Skipped++
					continue
				}
				prior = &existing[idx]
			}
		}

		var out reconciliation.Outcome
		if p.Engine != nil {
			var d reconciliation.Descriptor
			described := false
			if p.Describe != nil {
				d, described = p.Describe(item)
			}
			out = p.Engine.Reconcile(d, described, candidates)
			if !out.Keep {
				sum.Skipped++
				continue
			}
		}

		rec, ok := p.Build(ctx, item, out, prior)
		if !ok {
			sum.Skipped++
			continue
		}
		key := p.Key(rec)
		if key == "" {
			sum.Skipped++
			continue
		}
		if _, dup := seenKeys[key]; dup {
			sum.Skipped++
			continue
		}
		seenKeys[key] = struct{}{}
		if _, ok := onDisk[key]; ok && dedupeStored {
			sum.Skipped++
			continue
		}
		if p.Engine != nil && !out.Official {
			sum.Fallbacks++
		}
		incoming = append(incoming, rec)
	}

	merged, stats := store.Merge(existing, incoming, p.Key, p.Merge)
	sum.Added = stats.Added
	sum.Replaced = stats.Replaced
	sum.Skipped += stats.Skipped

	snapshot := p.Snapshot && fetchClean && len(incoming) > 0
	if p.Keep != nil || snapshot {
		kept := merged[:0]
		for _, rec := range merged {
			_, fresh := seenKeys[p.Key(rec)]
			if snapshot && !fresh {
				continue
			}
			if p.Keep == nil || p.Keep(rec, fresh) {
				kept = append(kept, rec)
			}
		}
		merged = kept
	}
	if p.Order != nil {
		p.Order(merged)
	}

	if err := p.Store.Save(merged); err != nil {
		sum.Errors++
		sum.LastError = err.Error()
		logger.Error("save failed", "error", err)
		rep.OnJobError(p.JobName, err)
	}
	sum.Total = len(merged)
	sum.finish(now())

	logger.Info("run finished",
		"fetched", sum.Fetched, "added", sum.Added, "replaced", sum.Replaced,
		"skipped", sum.Skipped, "fallbacks", sum.Fallbacks, "errors", sum.Errors,
		"total", sum.Total, "duration", sum.Duration())
	return sum
}
