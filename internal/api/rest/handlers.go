package rest

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"

	"github.com/fortuna/goalfeed/internal/jobs"
	"github.com/fortuna/goalfeed/internal/scheduler"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 200
	checkTimeout    = 3 * time.Second
)

// Handler contains dependencies for HTTP handlers
type Handler struct {
	registry  *jobs.Registry
	tracker   *jobs.Tracker
	trigger   Triggerer
	history   History
	schedule  func() []scheduler.Entry
	outputDir string
	artifacts map[string]string
	checks    map[string]func(context.Context) error
}

// NewHandler creates a new handler. Run history falls back to the
// in-memory tracker when no ledger is configured.
func NewHandler(opts Options) *Handler {
	if opts.Registry == nil {
		opts.Registry = jobs.NewRegistry()
	}
	if opts.Tracker == nil {
		opts.Tracker = jobs.NewTracker(0)
	}
	history := opts.History
	if history == nil {
		history = trackerHistory{opts.Tracker}
	}
	artifacts := opts.Artifacts
	if artifacts == nil {
		artifacts = jobs.ArtifactDirs()
	}
	return &Handler{
		registry:  opts.Registry,
		tracker:   opts.Tracker,
		trigger:   opts.Trigger,
		history:   history,
		schedule:  opts.Schedule,
		outputDir: opts.OutputDir,
		artifacts: artifacts,
		checks:    opts.Checks,
	}
}

type trackerHistory struct {
	tracker *jobs.Tracker
}

func (t trackerHistory) Recent(_ context.Context, job string, limit int) ([]jobs.Summary, error) {
	return t.tracker.Recent(job, limit), nil
}

// HealthCheck reports the state of every configured dependency.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := check(ctx)
		cancel()
		if err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}
	respondJSON(w, status, map[string]interface{}{
		"status":       state,
		"service":      "goalfeed",
		"dependencies": deps,
	})
}

type jobView struct {
	Name     string           `json:"name"`
	Running  bool             `json:"running"`
	Schedule *scheduler.Entry `json:"schedule,omitempty"`
	LastRun  *jobs.Summary    `json:"last_run,omitempty"`
}

// ListJobs returns every registered job with its schedule and last run.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	entries := make(map[string]scheduler.Entry)
	if h.schedule != nil {
		for _, e := range h.schedule() {
			entries[e.Job] = e
		}
	}

	names := h.registry.Names()
	views := make([]jobView, 0, len(names))
	for _, name := range names {
		v := jobView{Name: name, Running: h.tracker.Running(name)}
		if e, ok := entries[name]; ok {
			v.Schedule = &e
		}
		if recent := h.tracker.Recent(name, 1); len(recent) == 1 {
			v.LastRun = &recent[0]
		}
		views = append(views, v)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":   views,
		"active": h.tracker.Status().Active,
	})
}

// TriggerJob handles POST /api/v1/jobs/{job}/run
func (h *Handler) TriggerJob(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["job"]
	if h.trigger == nil {
		respondError(w, http.StatusServiceUnavailable, "Scheduler is disabled", nil)
		return
	}

	err := h.trigger.Trigger(name)
	switch {
	case errors.Is(err, jobs.ErrUnknownJob):
		respondError(w, http.StatusNotFound, "Job not found", err)
		return
	case errors.Is(err, scheduler.ErrAlreadyRunning):
		respondError(w, http.StatusConflict, "Job is already running", err)
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "Failed to start job", err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"job":    name,
		"status": "accepted",
	})
}

// methodNotAllowed answers any method other than allowed with 405.
func methodNotAllowed(allowed string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", allowed)
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

// ListRuns handles GET /api/v1/runs?job=&limit=
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	job := r.URL.Query().Get("job")
	if job != "" {
		if _, err := h.registry.Get(job); err != nil {
			respondError(w, http.StatusNotFound, "Job not found", err)
			return
		}
	}

	limit := defaultRunLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		l, err := strconv.Atoi(raw)
		if err != nil || l <= 0 || l > maxRunLimit {
			respondError(w, http.StatusBadRequest, "Invalid limit (1-200)", err)
			return
		}
		limit = l
	}

	runs, err := h.history.Recent(r.Context(), job, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch runs", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// ListArtifactDirs returns the artifact directory of every job.
func (h *Handler) ListArtifactDirs(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.artifacts)
}

// ListArtifacts lists the JSON files a job has written.
func (h *Handler) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["job"]
	dir, ok := h.artifacts[name]
	if !ok {
		respondError(w, http.StatusNotFound, "Job not found", nil)
		return
	}

	entries, err := os.ReadDir(filepath.Join(h.outputDir, dir))
	if err != nil && !os.IsNotExist(err) {
		respondError(w, http.StatusInternalServerError, "Failed to list artifacts", err)
		return
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"job":   name,
		"dir":   dir,
		"files": files,
	})
}

// GetArtifact streams one artifact file as written by its job.
func (h *Handler) GetArtifact(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	dir, ok := h.artifacts[vars["job"]]
	if !ok {
		respondError(w, http.StatusNotFound, "Job not found", nil)
		return
	}

	name := vars["name"]
	if filepath.Base(name) != name || !strings.HasSuffix(name, ".json") {
		respondError(w, http.StatusBadRequest, "Invalid artifact name", nil)
		return
	}

	raw, err := os.ReadFile(filepath.Join(h.outputDir, dir, name))
	if os.IsNotExist(err) {
		respondError(w, http.StatusNotFound, "Artifact not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to read artifact", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := sonic.Marshal(data)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}
