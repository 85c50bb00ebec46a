package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/goalfeed/internal/jobs"
	"github.com/fortuna/goalfeed/internal/scheduler"
)

type namedJob string

func (n namedJob) Name() string { return string(n) }

func (n namedJob) Run(context.Context) jobs.Summary {
	return jobs.Summary{Job: string(n), Status: jobs.StatusCompleted}
}

type fakeTrigger struct {
	err       error
	triggered []string
}

func (f *fakeTrigger) Trigger(name string) error {
	f.triggered = append(f.triggered, name)
	return f.err
}

type testEnv struct {
	server  *Server
	tracker *jobs.Tracker
	trigger *fakeTrigger
	dir     string
}

func newTestEnv(t *testing.T, mutate func(*Options)) *testEnv {
	t.Helper()

	registry := jobs.NewRegistry()
	require.NoError(t, registry.Register(namedJob("matches")))
	require.NoError(t, registry.Register(namedJob("streams")))

	env := &testEnv{
		tracker: jobs.NewTracker(10),
		trigger: &fakeTrigger{},
		dir:     t.TempDir(),
	}
	opts := Options{
		Port:      "0",
		Registry:  registry,
		Tracker:   env.tracker,
		Trigger:   env.trigger,
		OutputDir: env.dir,
		Artifacts: map[string]string{"matches": "matches", "streams": "json"},
	}
	if mutate != nil {
		mutate(&opts)
	}
	env.server = NewServer(opts)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)

	var body map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") && rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	rec, body := env.do(t, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])

	env = newTestEnv(t, func(o *Options) {
		o.Checks = map[string]func(context.Context) error{
			"postgres": func(context.Context) error { return errors.New("connection refused") },
		}
	})
	rec, body = env.do(t, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "connection refused", body["dependencies"].(map[string]interface{})["postgres"])
}

func TestListJobs(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, func(o *Options) {
		o.Schedule = func() []scheduler.Entry {
			return []scheduler.Entry{{Job: "streams", Spec: "*/15 * * * *"}}
		}
	})
	env.tracker.OnJobStart("matches", "run-1")
	env.tracker.OnJobComplete(jobs.Summary{RunID: "run-1", Job: "matches", Added: 3})
	env.tracker.OnJobStart("streams", "run-2")

	rec, body := env.do(t, http.MethodGet, "/api/v1/jobs")
	require.Equal(t, http.StatusOK, rec.Code)

	list := body["jobs"].([]interface{})
	require.Len(t, list, 2)
	matches := list[0].(map[string]interface{})
	assert.Equal(t, "matches", matches["name"])
	assert.Equal(t, false, matches["running"])
	assert.EqualValues(t, 3, matches["last_run"].(map[string]interface{})["added"])
	assert.Nil(t, matches["schedule"])

	streams := list[1].(map[string]interface{})
	assert.Equal(t, true, streams["running"])
	assert.Equal(t, "*/15 * * * *", streams["schedule"].(map[string]interface{})["spec"])
	assert.Len(t, body["active"], 1)
}

func TestTriggerJob(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	rec, body := env.do(t, http.MethodPost, "/api/v1/jobs/matches/run")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "accepted", body["status"])
	assert.Equal(t, []string{"matches"}, env.trigger.triggered)

	env.trigger.err = errors.Wrap(scheduler.ErrAlreadyRunning, "matches")
	rec, _ = env.do(t, http.MethodPost, "/api/v1/jobs/matches/run")
	assert.Equal(t, http.StatusConflict, rec.Code)

	env.trigger.err = errors.Wrap(jobs.ErrUnknownJob, "nope")
	rec, _ = env.do(t, http.MethodPost, "/api/v1/jobs/nope/run")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/api/v1/jobs/matches/run")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "POST", rec.Header().Get("Allow"))
	assert.Len(t, env.trigger.triggered, 3)

	// later GET routes must not turn the mismatch into a 404
	rec, _ = env.do(t, http.MethodDelete, "/api/v1/jobs/matches/run")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	rec, _ = env.do(t, http.MethodGet, "/api/v1/runs")
	assert.Equal(t, http.StatusOK, rec.Code)

	disabled := newTestEnv(t, func(o *Options) { o.Trigger = nil })
	rec, _ = disabled.do(t, http.MethodPost, "/api/v1/jobs/matches/run")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type fakeHistory struct {
	job   string
	limit int
}

func (f *fakeHistory) Recent(_ context.Context, job string, limit int) ([]jobs.Summary, error) {
	f.job, f.limit = job, limit
	return []jobs.Summary{{Job: "matches", RunID: "db-1"}}, nil
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	for _, id := range []string{"a", "b", "c"} {
		env.tracker.OnJobComplete(jobs.Summary{RunID: id, Job: "matches"})
	}
	env.tracker.OnJobComplete(jobs.Summary{RunID: "d", Job: "streams"})

	rec, body := env.do(t, http.MethodGet, "/api/v1/runs?job=matches&limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body["count"])
	runs := body["runs"].([]interface{})
	assert.Equal(t, "c", runs[0].(map[string]interface{})["run_id"])

	rec, _ = env.do(t, http.MethodGet, "/api/v1/runs?limit=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/api/v1/runs?job=nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	history := &fakeHistory{}
	ledger := newTestEnv(t, func(o *Options) { o.History = history })
	rec, body = ledger.do(t, http.MethodGet, "/api/v1/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", history.job)
	assert.Equal(t, defaultRunLimit, history.limit)
	assert.EqualValues(t, 1, body["count"])
}

func TestArtifacts(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	require.NoError(t, os.MkdirAll(filepath.Join(env.dir, "matches"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "matches", "EPL.json"), []byte(`[{"GameId":1}]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "matches", "notes.txt"), []byte("x"), 0o644))

	rec, body := env.do(t, http.MethodGet, "/api/v1/artifacts/matches")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"EPL.json"}, body["files"])

	rec, body = env.do(t, http.MethodGet, "/api/v1/artifacts/streams")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["files"])

	rec, _ = env.do(t, http.MethodGet, "/api/v1/artifacts/matches/EPL.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"GameId":1}]`, rec.Body.String())

	rec, _ = env.do(t, http.MethodGet, "/api/v1/artifacts/matches/ESP.json")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/api/v1/artifacts/matches/notes.txt")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/api/v1/artifacts/weather")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Parallel()

	h := RecoveryMiddleware(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "boom")
}
