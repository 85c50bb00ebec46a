package runlog

import (
	"context"
	"sync"
	"time"

	"github.com/fortuna/goalfeed/internal/jobs"
	"github.com/fortuna/goalfeed/internal/platform/logging"
)

// Ledger is the subset of Repository the reporter writes to.
type Ledger interface {
	Start(ctx context.Context, runID, job string, started time.Time) error
	UpdateProgress(ctx context.Context, runID string, current, total int) error
	RecordError(ctx context.Context, runID string, err error) error
	Complete(ctx context.Context, s jobs.Summary) error
}

const writeTimeout = 5 * time.Second

// Reporter records run lifecycle events in the ledger. Progress writes are
// throttled per run.
type Reporter struct {
	ledger   Ledger
	logger   *logging.Logger
	every    time.Duration
	now      func() time.Time
	mu       sync.Mutex
	active   map[string]string
	lastSent map[string]time.Time
}

// NewReporter constructs a Reporter. every bounds how often progress is
// written for one run.
func NewReporter(ledger Ledger, every time.Duration, logger *logging.Logger) *Reporter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Reporter{
		ledger:   ledger,
		logger:   logger,
		every:    every,
		now:      time.Now,
		active:   make(map[string]string),
		lastSent: make(map[string]time.Time),
	}
}

func (r *Reporter) OnJobStart(job, runID string) {
	r.mu.Lock()
	r.active[job] = runID
	delete(r.lastSent, runID)
	r.mu.Unlock()

	r.write("start run", func(ctx context.Context) error {
		return r.ledger.Start(ctx, runID, job, r.now())
	})
}

func (r *Reporter) OnProgress(job string, current, total int) {
	r.mu.Lock()
	runID, ok := r.active[job]
	if !ok {
		r.mu.Unlock()
		return
	}
	now := r.now()
	if last, seen := r.lastSent[runID]; seen && current < total && now.Sub(last) < r.every {
		r.mu.Unlock()
		return
	}
	r.lastSent[runID] = now
	r.mu.Unlock()

	r.write("update progress", func(ctx context.Context) error {
		return r.ledger.UpdateProgress(ctx, runID, current, total)
	})
}

func (r *Reporter) OnJobError(job string, err error) {
	r.mu.Lock()
	runID, ok := r.active[job]
	r.mu.Unlock()
	if !ok {
		return
	}
	r.write("record error", func(ctx context.Context) error {
		return r.ledger.RecordError(ctx, runID, err)
	})
}

func (r *Reporter) OnJobComplete(s jobs.Summary) {
	r.mu.Lock()
	if r.active[s.Job] == s.RunID {
		delete(r.active, s.Job)
	}
	delete(r.lastSent, s.RunID)
	r.mu.Unlock()

	r.write("complete run", func(ctx context.Context) error {
		return r.ledger.Complete(ctx, s)
	})
}

// write runs fn detached from the job's context so that a canceled run is
// still recorded.
func (r *Reporter) write(what string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		r.logger.Warn("run ledger write failed", "op", what, "error", err)
	}
}
