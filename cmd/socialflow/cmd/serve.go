package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mlorenz/socialflow/internal/api"
	"github.com/mlorenz/socialflow/internal/diagnostics"
	"github.com/mlorenz/socialflow/internal/events"
	"github.com/mlorenz/socialflow/internal/runs"
	"github.com/mlorenz/socialflow/internal/trigger"
	"github.com/mlorenz/socialflow/internal/usage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the workflow server",
	Long: `Start the socialflow server: REST API, cron scheduler, and a
filesystem watcher that imports workflow definitions from the
configured directory.

Examples:
  # Start with defaults (:8080)
  socialflow serve

  # Start on a custom address
  socialflow serve --addr 0.0.0.0:3000

  # API only, no scheduler
  socialflow serve --no-scheduler`,
	RunE: runServe,
}

var (
	serveAddr        string
	serveNoScheduler bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "",
		"address to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&serveNoScheduler, "no-scheduler", false,
		"disable the cron scheduler and definitions watcher")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Warn("failed to close store", slog.String("error", closeErr.Error()))
		}
	}()

	ledger := usage.NewLedger(st, usage.WithLogger(logger.Logger))

	exec, err := buildExecutor(cfg, logger, ledger)
	if err != nil {
		return err
	}
	if len(exec.Modules()) == 0 {
		logger.Warn("no step modules registered; configure twitter or rapidapi credentials")
	} else {
		logger.Info("step modules registered", slog.Any("modules", exec.Modules()))
	}

	bus := events.New(100)
	defer bus.Close()

	coordinator := runs.NewCoordinator(st, st, exec,
		runs.WithLogger(logger.Logger),
		runs.WithRunTimeout(cfg.Workflow.RunTimeout),
		runs.WithEventBus(bus),
	)

	server := api.NewServer(st, coordinator, ledger,
		api.WithLogger(logger.Logger),
		api.WithCORSOrigins(cfg.Server.CORSOrigins),
		api.WithCollector(diagnostics.NewCollector()),
		api.WithEventBus(bus),
	)

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", slog.String("addr", addr))
		return server.ListenAndServe(ctx, addr)
	})

	if cfg.Scheduler.Enabled && !serveNoScheduler {
		scheduler := trigger.NewScheduler(st, st, coordinator, cfg.Scheduler.Tick,
			trigger.WithSchedulerLogger(logger.Logger))
		g.Go(func() error {
			logger.Info("scheduler started", slog.Duration("tick", cfg.Scheduler.Tick))
			return scheduler.Run(ctx)
		})

		watcher := trigger.NewWatcher(cfg.Workflow.DefinitionsDir, st,
			trigger.WithWatcherLogger(logger.Logger))
		g.Go(func() error {
			logger.Info("watching definitions", slog.String("dir", cfg.Workflow.DefinitionsDir))
			return watcher.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	logger.Info("server stopped")
	return nil
}
