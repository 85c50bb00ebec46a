// Package scheduler runs registered jobs on cron schedules through a bounded
// worker pool. A job never runs twice concurrently.
package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"github.com/robfig/cron/v3"

	"github.com/fortuna/goalfeed/internal/jobs"
	"github.com/fortuna/goalfeed/internal/platform/logging"
)

// ErrAlreadyRunning is returned by Trigger while the job is in flight.
var ErrAlreadyRunning = errors.New("job already running")

// Runner executes jobs by name.
type Runner interface {
	Names() []string
	Run(ctx context.Context, name string, rep jobs.Reporter) (jobs.Summary, error)
}

// Config holds scheduler configuration
type Config struct {
	Workers    int               // Default: 4
	Schedules  map[string]string // job name to cron spec
	Location   *time.Location    // Default: UTC
	RunTimeout time.Duration     // Default: 30m
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Workers:    4,
		Schedules:  map[string]string{},
		Location:   time.UTC,
		RunTimeout: 30 * time.Minute,
	}
}

// Entry describes one scheduled job.
type Entry struct {
	Job      string    `json:"job"`
	Spec     string    `json:"spec"`
	Next     time.Time `json:"next,omitempty"`
	Previous time.Time `json:"previous,omitempty"`
	Running  bool      `json:"running"`
}

// Orchestrator manages scheduled job runs
type Orchestrator struct {
	runner Runner
	rep    jobs.Reporter
	cfg    Config
	logger *logging.Logger
	cron   *cron.Cron
	pool   *ants.Pool

	mu      sync.Mutex
	base    context.Context
	cancel  context.CancelFunc
	running map[string]bool
	entries map[string]cron.EntryID
	wg      sync.WaitGroup
}

// NewOrchestrator validates the schedules against the runner and prepares
// the cron table. Nothing runs until Start.
func NewOrchestrator(runner Runner, rep jobs.Reporter, cfg Config, logger *logging.Logger) (*Orchestrator, error) {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = def.RunTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.With("component", "scheduler")

	o := &Orchestrator{
		runner:  runner,
		rep:     rep,
		cfg:     cfg,
		logger:  logger,
		running: make(map[string]bool),
		entries: make(map[string]cron.EntryID),
	}
	o.base, o.cancel = context.WithCancel(context.Background())

	pool, err := ants.NewPool(cfg.Workers, ants.WithPanicHandler(func(p any) {
		logger.Error("job panicked", "panic", p)
	}))
	if err != nil {
		return nil, errors.Wrap(err, "create worker pool")
	}
	o.pool = pool
	o.cron = cron.New(cron.WithLocation(cfg.Location))

	known := make(map[string]bool)
	for _, name := range runner.Names() {
		known[name] = true
	}
	for _, name := range sortedKeys(cfg.Schedules) {
		spec := cfg.Schedules[name]
		if !known[name] {
			pool.Release()
			return nil, errors.Wrapf(jobs.ErrUnknownJob, "schedule %q", name)
		}
		id, err := o.cron.AddFunc(spec, func() {
			if err := o.Trigger(name); err != nil {
				logger.Warn("scheduled run skipped", "job", name, "error", err)
			}
		})
		if err != nil {
			pool.Release()
			return nil, errors.Wrapf(err, "schedule %q", name)
		}
		o.entries[name] = id
	}
	return o, nil
}

// Start begins firing schedules. Runs stop when ctx is canceled or Stop is
// called.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	o.cancel()
	o.base, o.cancel = context.WithCancel(ctx)
	o.mu.Unlock()

	o.cron.Start()
	o.logger.Info("scheduler started", "jobs", len(o.entries), "workers", o.cfg.Workers)
}

// Trigger submits one run of name to the pool.
func (o *Orchestrator) Trigger(name string) error {
	if !o.known(name) {
		return errors.Wrapf(jobs.ErrUnknownJob, "%q", name)
	}

	o.mu.Lock()
	if o.running[name] {
		o.mu.Unlock()
		return errors.Wrapf(ErrAlreadyRunning, "%q", name)
	}
	o.running[name] = true
	base := o.base
	o.wg.Add(1)
	o.mu.Unlock()

	err := o.pool.Submit(func() {
		defer o.done(name)
		ctx, cancel := context.WithTimeout(base, o.cfg.RunTimeout)
		defer cancel()
		if _, err := o.runner.Run(ctx, name, o.rep); err != nil {
			o.logger.Error("job run failed", "job", name, "error", err)
		}
	})
	if err != nil {
		o.done(name)
		return errors.Wrapf(err, "submit %q", name)
	}
	return nil
}

func (o *Orchestrator) done(name string) {
	o.mu.Lock()
	delete(o.running, name)
	o.mu.Unlock()
	o.wg.Done()
}

func (o *Orchestrator) known(name string) bool {
	for _, n := range o.runner.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// Running reports whether name is in flight.
func (o *Orchestrator) Running(name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running[name]
}

// Entries lists the scheduled jobs by name.
func (o *Orchestrator) Entries() []Entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Entry, 0, len(o.entries))
	for _, name := range sortedKeys(o.cfg.Schedules) {
		id, ok := o.entries[name]
		if !ok {
			continue
		}
		e := o.cron.Entry(id)
		out = append(out, Entry{
			Job:      name,
			Spec:     o.cfg.Schedules[name],
			Next:     e.Next,
			Previous: e.Prev,
			Running:  o.running[name],
		})
	}
	return out
}

// Stop halts the schedules, cancels in-flight runs and waits for them until
// ctx expires.
func (o *Orchestrator) Stop(ctx context.Context) error {
	<-o.cron.Stop().Done()

	o.mu.Lock()
	o.cancel()
	o.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(finished)
	}()

	defer o.pool.Release()
	select {
	case <-finished:
		o.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "wait for running jobs")
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
