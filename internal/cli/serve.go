package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mtegner/mnemo/internal/observability"
	"github.com/mtegner/mnemo/internal/tracing"
	"github.com/mtegner/mnemo/pkg/memory"
	"github.com/mtegner/mnemo/pkg/toolexecutor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the mnemo daemon",
	Long: `Run the mnemo daemon in the foreground. The daemon schedules periodic
clustering and consistency sweeps, re-ingests watched directories on
change, and optionally exposes a Prometheus metrics endpoint.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	zl := a.log.Zerolog()

	if err := tracing.InitOpenTelemetry("mnemo"); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.ShutdownOpenTelemetry(ctx); err != nil {
			zl.Warn().Err(err).Msg("Tracing shutdown failed")
		}
	}()

	// The daemon exposes the facade through the tool layer.
	executor := toolexecutor.New()
	if err := memory.RegisterMemoryTools(executor, a.svc); err != nil {
		return err
	}

	scheduler, err := memory.NewScheduler(a.svc, memory.SchedulerConfig{
		OrganizeSchedule: a.cfg.Cluster.Schedule,
		SweepSchedule:    a.cfg.Cluster.SweepSchedule,
		SweepRepair:      a.cfg.Cluster.SweepRepair,
		Logger:           zl,
	})
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	if len(a.cfg.Ingest.WatchRoots) > 0 {
		watchUser := a.cfg.Ingest.WatchUser
		if watchUser == "" {
			watchUser = userID
		}

		watcher, err := memory.NewRootWatcher(a.cfg.Ingest.WatchRoots, zl, func(root string) {
			if _, err := a.svc.IngestDirectory(context.Background(), watchUser, root); err != nil {
				zl.Error().Str("root", root).Err(err).Msg("Watched-root re-ingestion failed")
			}
		})
		if err != nil {
			return fmt.Errorf("failed to watch ingest roots: %w", err)
		}
		defer watcher.Stop()
	}

	var metricsServer *http.Server
	if a.cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		metricsServer = &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux}

		go func() {
			zl.Info().Str("addr", a.cfg.Metrics.Addr).Msg("Metrics endpoint listening")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zl.Error().Err(err).Msg("Metrics endpoint failed")
			}
		}()
	}

	zl.Info().Str("version", version).Msg("Mnemo daemon started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	zl.Info().Str("signal", sig.String()).Msg("Shutting down")

	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(ctx); err != nil {
			zl.Warn().Err(err).Msg("Metrics endpoint shutdown failed")
		}
	}

	return nil
}
