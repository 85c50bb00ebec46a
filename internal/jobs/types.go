// Package jobs runs the ingestion jobs: each one fetches upstream items,
// reconciles them against canonical schedules, merges the resulting records
// into its JSON artifact and reports a Summary.
package jobs

import (
	"context"
	"time"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusDegraded    Status = "degraded"
	StatusInterrupted Status = "interrupted"
)

// Summary counts what one run did. Errors counts failed upstream calls and
// failed writes; a run with errors still saves whatever it gathered.
type Summary struct {
	RunID     string    `json:"run_id"`
	Job       string    `json:"job"`
	Target    string    `json:"target,omitempty"`
	Status    Status    `json:"status"`
	Fetched   int       `json:"fetched"`
	Added     int       `json:"added"`
	Replaced  int       `json:"replaced"`
	Skipped   int       `json:"skipped"`
	Fallbacks int       `json:"fallbacks"`
	Errors    int       `json:"errors"`
	Total     int       `json:"total"`
	LastError string    `json:"last_error,omitempty"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
	Parts     []Summary `json:"parts,omitempty"`
}

// Duration returns the wall time of the run.
func (s Summary) Duration() time.Duration {
	if s.Finished.IsZero() {
		return 0
	}
	return s.Finished.Sub(s.Started)
}

// Absorb adds the counters of part into s and keeps part under Parts.
func (s *Summary) Absorb(part Summary) {
	s.Fetched += part.Fetched
	s.Added += part.Added
	s.Replaced += part.Replaced
	s.Skipped += part.Skipped
	s.Fallbacks += part.Fallbacks
	s.Errors += part.Errors
	s.Total += part.Total
	if part.LastError != "" {
		s.LastError = part.LastError
	}
	s.Parts = append(s.Parts, part)
}

func (s *Summary) finish(now time.Time) {
	s.Finished = now
	if s.Errors > 0 {
		s.Status = StatusDegraded
	} else {
		s.Status = StatusCompleted
	}
}

// Job is one schedulable unit of work. Run never fails as a whole; failures
// are counted in the Summary.
type Job interface {
	Name() string
	Run(ctx context.Context) Summary
}

// Source yields the raw items of one fetch cycle. A *ingest.PartialError
// return means the items are usable but some upstream calls failed.
type Source[R any] interface {
	Fetch(ctx context.Context) ([]R, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc[R any] func(ctx context.Context) ([]R, error)

func (f SourceFunc[R]) Fetch(ctx context.Context) ([]R, error) {
	return f(ctx)
}

// Reporter receives lifecycle callbacks from runs.
type Reporter interface {
	OnJobStart(job, runID string)
	OnProgress(job string, current, total int)
	OnJobComplete(s Summary)
	OnJobError(job string, err error)
}

type reporterKey struct{}

// WithReporter attaches r to ctx so that pipelines can report progress.
func WithReporter(ctx context.Context, r Reporter) context.Context {
	return context.WithValue(ctx, reporterKey{}, r)
}

// ReporterFrom returns the reporter attached to ctx, or a no-op one.
func ReporterFrom(ctx context.Context) Reporter {
	if r, ok := ctx.Value(reporterKey{}).(Reporter); ok && r != nil {
		return r
	}
	return nopReporter{}
}

type nopReporter struct{}

func (nopReporter) OnJobStart(string, string)   {}
func (nopReporter) OnProgress(string, int, int) {}
func (nopReporter) OnJobComplete(Summary)       {}
func (nopReporter) OnJobError(string, error)    {}
