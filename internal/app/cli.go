package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fortuna/goalfeed/internal/api/rest"
	"github.com/fortuna/goalfeed/internal/config"
	"github.com/fortuna/goalfeed/internal/jobs"
	"github.com/fortuna/goalfeed/internal/platform/logging"
	"github.com/fortuna/goalfeed/internal/scheduler"
)

const shutdownTimeout = 30 * time.Second

// RunJob is the body of the one-shot job binaries. It returns the process
// exit code: 0 after any completed run, 1 when configuration is unusable.
func RunJob(name string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		return 1
	}
	logger := logging.New(cfg.Log.Format, logging.ParseLevel(cfg.Log.Level)).With("job", name)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := New(ctx, cfg, logger, name)
	if err != nil {
		logger.Error("setup failed", "error", err)
		return 1
	}
	defer a.Close()

	s, err := a.Run(ctx, name)
	if err != nil {
		logger.Error("run failed", "error", err)
		return 1
	}
	logSummary(logger, s)
	return 0
}

func logSummary(logger *logging.Logger, s jobs.Summary) {
	for _, part := range s.Parts {
		logger.Info("artifact updated",
			"target", part.Target, "added", part.Added, "replaced", part.Replaced,
			"skipped", part.Skipped, "errors", part.Errors, "total", part.Total)
	}
	logger.Info("done",
		"status", s.Status, "fetched", s.Fetched, "added", s.Added,
		"fallbacks", s.Fallbacks, "errors", s.Errors, "duration", s.Duration())
}

// Serve runs the scheduler and REST server until ctx is canceled.
func Serve(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	a, err := New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	a.ResetStuckRuns(ctx)

	sched, err := scheduler.NewOrchestrator(a.Registry, a.Reporter, scheduler.Config{
		Workers:   cfg.Scheduler.Workers,
		Schedules: config.Pairs(cfg.Scheduler.Jobs),
	}, logger)
	if err != nil {
		return err
	}
	if cfg.Scheduler.Enabled {
		sched.Start(ctx)
	} else {
		logger.Info("scheduler disabled, runs start only on demand")
	}

	var server *rest.Server
	serverErr := make(chan error, 1)
	if cfg.API.Enabled {
		opts := rest.Options{
			Port:      cfg.API.Port,
			Registry:  a.Registry,
			Tracker:   a.Tracker,
			Trigger:   sched,
			Schedule:  sched.Entries,
			OutputDir: cfg.OutputDir,
			Artifacts: jobs.ArtifactDirs(),
			Checks:    a.Checks(),
			Logger:    logger,
		}
		if a.Ledger != nil {
			opts.History = a.Ledger
		}
		server = rest.NewServer(opts)
		go func() { serverErr <- server.Start() }()
	}

	logger.Info("goalfeed started", "jobs", len(a.Registry.Names()), "api", cfg.API.Enabled, "scheduler", cfg.Scheduler.Enabled)

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		logger.Error("api server stopped", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("api shutdown failed", "error", err)
		}
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Warn("scheduler shutdown timed out", "error", err)
	}
	logger.Info("goalfeed stopped")
	return nil
}
