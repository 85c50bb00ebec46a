package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/goalfeed/internal/jobs"
)

type blockingRunner struct {
	names   []string
	release chan struct{}
	started chan string

	mu   sync.Mutex
	runs map[string]int
}

func newBlockingRunner(names ...string) *blockingRunner {
	return &blockingRunner{
		names:   names,
		release: make(chan struct{}),
		started: make(chan string, 10),
		runs:    make(map[string]int),
	}
}

func (b *blockingRunner) Names() []string { return b.names }

func (b *blockingRunner) Run(ctx context.Context, name string, _ jobs.Reporter) (jobs.Summary, error) {
	b.mu.Lock()
	b.runs[name]++
	b.mu.Unlock()
	b.started <- name
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return jobs.Summary{Job: name}, nil
}

func (b *blockingRunner) count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.runs[name]
}

func TestNewOrchestrator_RejectsBadSchedules(t *testing.T) {
	t.Parallel()

	runner := newBlockingRunner("matches")

	_, err := NewOrchestrator(runner, nil, Config{Schedules: map[string]string{"nope": "* * * * *"}}, nil)
	assert.ErrorIs(t, err, jobs.ErrUnknownJob)

	_, err = NewOrchestrator(runner, nil, Config{Schedules: map[string]string{"matches": "every now and then"}}, nil)
	assert.Error(t, err)
}

func TestTrigger_SingleFlight(t *testing.T) {
	t.Parallel()

	runner := newBlockingRunner("matches", "stats")
	o, err := NewOrchestrator(runner, nil, Config{Workers: 2}, nil)
	require.NoError(t, err)
	o.Start(context.Background())

	require.NoError(t, o.Trigger("matches"))
	assert.Equal(t, "matches", <-runner.started)
	assert.True(t, o.Running("matches"))

	err = o.Trigger("matches")
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	assert.ErrorIs(t, o.Trigger("unknown"), jobs.ErrUnknownJob)

	close(runner.release)
	assert.Eventually(t, func() bool { return !o.Running("matches") }, time.Second, 5*time.Millisecond)

	require.NoError(t, o.Trigger("matches"))
	<-runner.started
	assert.Eventually(t, func() bool { return !o.Running("matches") }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, runner.count("matches"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, o.Stop(ctx))
}

func TestStop_CancelsRunningJobs(t *testing.T) {
	t.Parallel()

	runner := newBlockingRunner("stats")
	o, err := NewOrchestrator(runner, nil, Config{}, nil)
	require.NoError(t, err)
	o.Start(context.Background())

	require.NoError(t, o.Trigger("stats"))
	<-runner.started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, o.Stop(ctx))
	assert.False(t, o.Running("stats"))
}

func TestEntries(t *testing.T) {
	t.Parallel()

	runner := newBlockingRunner("matches", "streams")
	o, err := NewOrchestrator(runner, nil, Config{Schedules: map[string]string{
		"streams": "*/15 * * * *",
		"matches": "0 */6 * * *",
	}}, nil)
	require.NoError(t, err)
	o.Start(context.Background())
	defer func() { _ = o.Stop(context.Background()) }()

	entries := o.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "matches", entries[0].Job)
	assert.Equal(t, "0 */6 * * *", entries[0].Spec)
	assert.Equal(t, "streams", entries[1].Job)
	assert.False(t, entries[1].Next.IsZero())
}
