// Command goalfeed runs the job scheduler and the REST API. With
// "run <job>" it runs one job and exits; "jobs" lists the job names.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	_ "time/tzdata"

	"github.com/fortuna/goalfeed/internal/app"
	"github.com/fortuna/goalfeed/internal/config"
	"github.com/fortuna/goalfeed/internal/platform/logging"
)

const usage = `usage:
  goalfeed            run the scheduler and REST API
  goalfeed run <job>  run one job and exit
  goalfeed jobs       list job names`

func main() {
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "run":
			if len(args) != 2 {
				fmt.Fprintln(os.Stderr, usage)
				os.Exit(2)
			}
			os.Exit(app.RunJob(args[1]))
		case "jobs":
			fmt.Println(strings.Join(app.JobNames, "\n"))
			return
		default:
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "goalfeed: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewJSON(logging.ParseLevel(cfg.Log.Level)).With("service", "goalfeed")
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Serve(ctx, cfg, logger); err != nil {
		logger.Error("goalfeed failed", "error", err)
		os.Exit(1)
	}
}
