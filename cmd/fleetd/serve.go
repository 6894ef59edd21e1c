package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/fleetd/pkg/config"
	"github.com/cuemby/fleetd/pkg/events"
	"github.com/cuemby/fleetd/pkg/health"
	"github.com/cuemby/fleetd/pkg/log"
	"github.com/cuemby/fleetd/pkg/metrics"
	"github.com/cuemby/fleetd/pkg/orchestrator"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the fleetd orchestrator",
	Long: `serve starts the node listener, the public bus listener, the
metrics endpoint, and the health endpoint, and blocks until interrupted.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := log.WithComponent("main")

	watcher, err := config.NewWatcher(configPath, cfg)
	if err != nil {
		return err
	}
	if configPath != "" {
		if err := watcher.Start(); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	auditSub := broker.Subscribe()
	defer broker.Unsubscribe(auditSub)
	go logEvents(auditSub)

	orch := orchestrator.New(orchestrator.Config{
		NodeListenAddr:   cfg.NodeListenAddr,
		PublicListenAddr: cfg.PublicListenAddr,
	}, broker)

	collector := metrics.NewCollector(orch.Registry(), orch.Engine())
	collector.Start()
	defer collector.Stop()

	checker := health.NewChecker(orch.Registry())

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics endpoint started")

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", checker.LivenessHandler())
	healthMux.HandleFunc("/readyz", checker.ReadinessHandler())
	healthServer := &http.Server{Addr: cfg.HealthAddr, Handler: healthMux}
	go func() {
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("health server stopped")
		}
	}()
	logger.Info().Str("addr", cfg.HealthAddr).Msg("health endpoint started")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- orch.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
	_ = healthServer.Shutdown(shutdownCtx)

	return nil
}

// logEvents is the broker's audit-log consumer: it drains sub and writes
// one structured log line per event until the broker closes the channel.
func logEvents(sub events.Subscriber) {
	logger := log.WithComponent("events")
	for evt := range sub {
		entry := logger.Info().Str("event_type", string(evt.Type)).Time("timestamp", evt.Timestamp)
		switch p := evt.Payload.(type) {
		case events.NodePayload:
			entry = entry.Str("node_name", p.Name).Str("object_path", p.ObjectPath)
		case events.JobPayload:
			entry = entry.Str("job_id", p.ID).Str("job_type", p.Type).Str("target", p.Target)
			if p.Result != "" {
				entry = entry.Str("result", p.Result)
			}
		}
		entry.Msg("fleet event")
	}
}
