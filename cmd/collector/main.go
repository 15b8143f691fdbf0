package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"aha_collector/internal/config"
	"aha_collector/internal/scheduler"
	"aha_collector/internal/server"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "collector",
		Short:         "Collects AI aha moments from Reddit and Hacker News and renders a dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run fetch, classify, publish and render once",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd.Context(), configPath, true, func(ctx context.Context, a *app) error {
					_, err := a.pipeline.Run(ctx)
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "fetch",
			Short: "Fetch and store matching posts from every enabled platform",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd.Context(), configPath, false, func(ctx context.Context, a *app) error {
					var errs []error
					for _, f := range a.fetchers {
						if _, err := f.Fetch(ctx); err != nil {
							errs = append(errs, err)
						}
					}
					return errors.Join(errs...)
				})
			},
		},
		&cobra.Command{
			Use:   "classify",
			Short: "Classify pending posts and publish the accepted ones",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd.Context(), configPath, true, func(ctx context.Context, a *app) error {
					if _, err := a.classify.Classify(ctx); err != nil {
						return err
					}
					_, err := a.publish.Publish(ctx)
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "render",
			Short: "Regenerate the dashboard from the published moments",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd.Context(), configPath, false, func(ctx context.Context, a *app) error {
					_, err := a.render.Render(ctx)
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the live dashboard and run the pipeline on a schedule",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd.Context(), configPath, true, serve)
			},
		},
	)

	return root
}

// withApp loads configuration, wires the application and runs fn until it
// returns or the process receives SIGINT/SIGTERM.
func withApp(parent context.Context, configPath string, classify bool, fn func(context.Context, *app) error) error {
	logger := setupLogger("info")

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}
	logger = setupLogger(cfg.LogLevel)

	if classify {
		err = cfg.Validate()
	} else {
		err = cfg.ValidateStorage()
	}
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, classify)
	if err != nil {
		logger.Error("failed to start", "error", err)
		return err
	}
	defer a.Close()

	if err := fn(ctx, a); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("command failed", "error", err)
		return err
	}
	return nil
}

func serve(parent context.Context, a *app) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	handler := server.NewHandler(a.render, a.renderer, a.logger)
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           server.NewServer(handler, a.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("dashboard server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("http server: %w", err)
		}
		close(serveErr)
	}()

	sched := scheduler.NewScheduler(a.pipeline, a.cfg.Sync.Interval, a.cfg.Sync.RunTimeout, a.logger)
	schedErr := make(chan error, 1)
	go func() { schedErr <- sched.Start(ctx) }()

	var err error
	select {
	case err = <-serveErr:
	case <-ctx.Done():
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		a.logger.Error("http server shutdown", "error", shutdownErr)
	}

	if schedulerErr := <-schedErr; err == nil && !errors.Is(schedulerErr, context.Canceled) {
		err = schedulerErr
	}
	return err
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
