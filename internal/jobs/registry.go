package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// ErrUnknownJob is returned for names that were never registered.
var ErrUnknownJob = errors.New("unknown job")

// Registry maps job names to jobs.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]Job)}
}

// Register adds job. Names must be unique.
func (r *Registry) Register(job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := job.Name()
	if name == "" {
		return errors.New("register job: empty name")
	}
	if _, exists := r.jobs[name]; exists {
		return errors.Newf("register job %q: already registered", name)
	}
	r.jobs[name] = job
	return nil
}

// Get returns the job registered under name.
func (r *Registry) Get(name string) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownJob, "%q", name)
	}
	return job, nil
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run looks up name and runs it under rep.
func (r *Registry) Run(ctx context.Context, name string, rep Reporter) (Summary, error) {
	job, err := r.Get(name)
	if err != nil {
		return Summary{}, err
	}
	return Run(ctx, job, rep), nil
}

// Run executes job once, assigning a run id and reporting start and
// completion to rep.
func Run(ctx context.Context, job Job, rep Reporter) Summary {
	if rep == nil {
		rep = nopReporter{}
	}
	runID := uuid.NewString()
	rep.OnJobStart(job.Name(), runID)

	s := job.Run(WithReporter(ctx, rep))
	s.RunID = runID
	if s.Job == "" {
		s.Job = job.Name()
	}
	rep.OnJobComplete(s)
	return s
}

// Multi runs its parts in order and sums their counters. It is used for
// jobs that write one artifact per league.
type Multi struct {
	name  string
	parts []Job
	now   func() time.Time
}

// NewMulti groups parts under name.
func NewMulti(name string, parts ...Job) *Multi {
	return &Multi{name: name, parts: parts, now: time.Now}
}

func (m *Multi) Name() string {
	return m.name
}

// Parts returns the grouped jobs.
func (m *Multi) Parts() []Job {
	return m.parts
}

// Run runs every part. Cancellation stops before the next part.
func (m *Multi) Run(ctx context.Context) Summary {
	sum := Summary{Job: m.name, Status: StatusRunning, Started: m.now()}
	for _, part := range m.parts {
		if err := ctx.Err(); err != nil {
			sum.Errors++
			sum.LastError = err.Error()
			break
		}
		sum.Absorb(part.Run(ctx))
	}
	sum.finish(m.now())
	return sum
}
