package jobs

import (
	"sort"
	"sync"

	"github.com/fortuna/goalfeed/internal/platform/logging"
)

// Reporters fans callbacks out to every member.
type Reporters []Reporter

func (rs Reporters) OnJobStart(job, runID string) {
	for _, r := range rs {
		r.OnJobStart(job, runID)
	}
}

func (rs Reporters) OnProgress(job string, current, total int) {
	for _, r := range rs {
		r.OnProgress(job, current, total)
	}
}

func (rs Reporters) OnJobComplete(s Summary) {
	for _, r := range rs {
		r.OnJobComplete(s)
	}
}

func (rs Reporters) OnJobError(job string, err error) {
	for _, r := range rs {
		r.OnJobError(job, err)
	}
}

// LogReporter writes run lifecycle events to a logger.
type LogReporter struct {
	logger *logging.Logger
}

// NewLogReporter creates a reporter logging through logger.
func NewLogReporter(logger *logging.Logger) *LogReporter {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogReporter{logger: logger.With("component", "jobs")}
}

func (l *LogReporter) OnJobStart(job, runID string) {
	l.logger.Info("job started", "job", job, "run_id", runID)
}

func (l *LogReporter) OnProgress(job string, current, total int) {
	l.logger.Debug("job progress", "job", job, "current", current, "total", total)
}

func (l *LogReporter) OnJobComplete(s Summary) {
	l.logger.Info("job completed",
		"job", s.Job, "run_id", s.RunID, "status", s.Status,
		"added", s.Added, "skipped", s.Skipped, "errors", s.Errors,
		"duration", s.Duration())
}

func (l *LogReporter) OnJobError(job string, err error) {
	l.logger.Warn("job error", "job", job, "error", err)
}

// Progress is the live state of a running job.
type Progress struct {
	RunID     string `json:"run_id"`
	Job       string `json:"job"`
	Current   int    `json:"current"`
	Total     int    `json:"total"`
	LastError string `json:"last_error,omitempty"`
}

// StatusSummary is returned to API callers.
type StatusSummary struct {
	Active  []Progress `json:"active,omitempty"`
	History []Summary  `json:"recent_runs,omitempty"`
}

const defaultHistoryLimit = 50

// Tracker keeps the active runs and a bounded history in memory.
type Tracker struct {
	mu      sync.Mutex
	limit   int
	active  map[string]*Progress
	history []Summary
}

// NewTracker creates a tracker keeping up to limit finished runs.
func NewTracker(limit int) *Tracker {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return &Tracker{limit: limit, active: make(map[string]*Progress)}
}

func (t *Tracker) OnJobStart(job, runID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[job] = &Progress{RunID: runID, Job: job}
}

func (t *Tracker) OnProgress(job string, current, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.active[job]; ok {
		p.Current, p.Total = current, total
	}
}

func (t *Tracker) OnJobComplete(s Summary) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.active, s.Job)
	t.history = append([]Summary{s}, t.history...)
	if len(t.history) > t.limit {
		t.history = t.history[:t.limit]
	}
}

func (t *Tracker) OnJobError(job string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.active[job]; ok && err != nil {
		p.LastError = err.Error()
	}
}

// Running reports whether job has an active run.
func (t *Tracker) Running(job string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.active[job]
	return ok
}

// Status returns copies of the active runs and the history.
func (t *Tracker) Status() StatusSummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := StatusSummary{History: append([]Summary(nil), t.history...)}
	for _, p := range t.active {
		out.Active = append(out.Active, *p)
	}
	sort.Slice(out.Active, func(i, j int) bool { return out.Active[i].Job < out.Active[j].Job })
	return out
}

// Recent returns up to limit finished runs, newest first. An empty job
// matches every job.
func (t *Tracker) Recent(job string, limit int) []Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Summary, 0, max(limit, 0))
	for _, s := range t.history {
		if job != "" && s.Job != job {
			continue
		}
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
