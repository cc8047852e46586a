package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TroyBWP/Scrape-Outstanding-Followups/internal/api"
	"github.com/TroyBWP/Scrape-Outstanding-Followups/internal/browser"
	"github.com/TroyBWP/Scrape-Outstanding-Followups/internal/config"
	"github.com/TroyBWP/Scrape-Outstanding-Followups/internal/credentials"
	"github.com/TroyBWP/Scrape-Outstanding-Followups/internal/monitoring"
	"github.com/TroyBWP/Scrape-Outstanding-Followups/internal/runner"
	"github.com/TroyBWP/Scrape-Outstanding-Followups/internal/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "followups",
		Short:         "Capture the outstanding follow-ups snapshot from the dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Bare invocation behaves like `run` so the scheduler can
			// call the binary directly.
			return runSnapshot(cmd.Context())
		},
	}

	root.AddCommand(newRunCmd(), newServeCmd(), newCleanupCmd())
	return root
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Perform one scrape-and-persist run and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(cmd.Context())
		},
	}
}

func runSnapshot(ctx context.Context) error {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("could not load config", zap.Error(err))
		return err
	}

	r, _ := buildRunner(cfg, logger)
	// The store connection is scoped to the run: the runner dials it after
	// the secrets resolve and releases it on every exit path.
	r.NewStore = func(ctx context.Context) (runner.Store, func(), error) {
		store, err := storage.NewSnapshotStore(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}

	summary, err := r.Run(ctx)
	if err != nil {
		logger.Error("snapshot run failed", zap.Error(err))
		return err
	}
	if summary.Skipped {
		logger.Info("run skipped by run guard")
	}
	return nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ops HTTP server for manual triggers and monitoring",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, _ := zap.NewProduction()
			defer logger.Sync()

			cfg, err := config.Load()
			if err != nil {
				logger.Error("could not load config", zap.Error(err))
				return err
			}

			// Serve mode holds one pool for its lifetime: health checks
			// ping it and triggered runs borrow it.
			store, err := storage.NewSnapshotStore(cmd.Context(), cfg.PostgresURL)
			if err != nil {
				logger.Error("failed to connect to postgres", zap.Error(err))
				return err
			}
			defer store.Close()

			r, guard := buildRunner(cfg, logger)
			r.NewStore = func(context.Context) (runner.Store, func(), error) {
				return store, func() {}, nil
			}

			server := api.NewServer(cfg, r, store, guard, r.Metrics(), logger)

			errCh := make(chan error, 1)
			go func() {
				if err := server.Start(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()
			logger.Info("server started", zap.String("port", cfg.ServerPort))

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				logger.Error("could not start server", zap.Error(err))
				return err
			case <-quit:
			}

			logger.Info("shutting down server...")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				logger.Error("server forced to shutdown", zap.Error(err))
				return err
			}
			logger.Info("server exiting")
			return nil
		},
	}
}

func newCleanupCmd() *cobra.Command {
	var location string
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete test follow-up records for a location",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, _ := zap.NewProduction()
			defer logger.Sync()

			cfg, err := config.Load()
			if err != nil {
				logger.Error("could not load config", zap.Error(err))
				return err
			}
			store, err := storage.NewSnapshotStore(cmd.Context(), cfg.PostgresURL)
			if err != nil {
				logger.Error("failed to connect to postgres", zap.Error(err))
				return err
			}
			defer store.Close()

			removed, err := store.DeleteTestRecords(cmd.Context(), location)
			if err != nil {
				logger.Error("cleanup failed", zap.Error(err))
				return err
			}
			fmt.Printf("removed %d record(s) for %q\n", removed, location)
			return nil
		},
	}
	cmd.Flags().StringVar(&location, "location", "", "location name to delete test records for")
	_ = cmd.MarkFlagRequired("location")
	return cmd
}

// buildRunner wires the real collaborators: keyring, optional redis run
// guard, metrics, and the chromedp browser factory. The caller supplies the
// store factory, since its lifetime differs between run and serve modes.
func buildRunner(cfg *config.Config, logger *zap.Logger) (*runner.Runner, *storage.RunGuard) {
	var guard *storage.RunGuard
	if cfg.RedisAddr != "" {
		guard = storage.NewRunGuard(cfg.RedisAddr)
	}

	var guardIface runner.Guard
	if guard != nil {
		guardIface = guard
	}
	r := runner.New(cfg, credentials.OSKeyring{}, guardIface, monitoring.NewMetrics(), logger)
	r.NewBrowser = func(ctx context.Context) (runner.Browser, func(), error) {
		session, err := browser.NewSession(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return session, session.Close, nil
	}

	return r, guard
}
