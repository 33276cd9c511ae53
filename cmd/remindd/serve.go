package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kelasbot/remindd/internal/command"
	"github.com/kelasbot/remindd/internal/config"
	"github.com/kelasbot/remindd/internal/dispatch"
	"github.com/kelasbot/remindd/internal/logging"
	"github.com/kelasbot/remindd/internal/monitor"
	"github.com/kelasbot/remindd/internal/reminder"
	"github.com/kelasbot/remindd/internal/store"
)

const shutdownTimeout = 10 * time.Second

// runServe initializes all dependencies and blocks until SIGINT/SIGTERM:
//
//  1. Load and validate configuration
//  2. Build logger and resolve timezone
//  3. Open the JSON snapshot stores
//  4. Connect to NATS; start the outbound dispatch queue
//  5. Start the monitoring HTTP server (if enabled)
//  6. Subscribe the inbound command consumer
//  7. Watch the settings file; start the sweep scheduler
//  8. Tear everything down in reverse on signal
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	clock := reminder.SystemClock{Loc: loc}

	logger.Info("starting remindd",
		zap.String("version", version),
		zap.String("data_dir", cfg.DataDir),
		zap.String("timezone", cfg.Timezone),
		zap.Duration("sweep_interval", cfg.Sweep.Interval))

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	tasks, err := store.NewTaskStore(filepath.Join(cfg.DataDir, "groups.json"))
	if err != nil {
		return err
	}
	settingsPath := filepath.Join(cfg.DataDir, "settings.json")
	settings, err := store.NewSettingsStore(settingsPath)
	if err != nil {
		return err
	}
	archive, err := store.NewArchiveStore(filepath.Join(cfg.DataDir, "archive.json"))
	if err != nil {
		return err
	}

	nc, err := nats.Connect(cfg.NATS.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer nc.Close()
	logger.Info("connected to NATS", zap.String("url", cfg.NATS.URL))

	transport, err := dispatch.NewNATSTransport(nc, cfg.NATS.SubjectPrefix)
	if err != nil {
		return err
	}
	queue, err := dispatch.NewQueue(transport, logger,
		dispatch.WithRetryBudget(cfg.Dispatch.RetryBudget))
	if err != nil {
		return err
	}
	queue.Start()
	defer queue.Stop()

	var metrics *monitor.Metrics
	var srv *monitor.Server
	if cfg.Monitor.Enabled {
		reg := prometheus.NewRegistry()
		metrics = monitor.NewMetrics(reg)
		srv, err = monitor.NewServer(cfg.Monitor.Addr, reg, logger)
		if err != nil {
			return err
		}
		go func() {
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				logger.Error("monitoring server failed", zap.Error(err))
			}
		}()
	}

	settingsSvc, err := reminder.NewSettingsService(settings, clock, logger)
	if err != nil {
		return err
	}
	handler, err := command.NewHandler(tasks, archive, settingsSvc, clock, loc, logger)
	if err != nil {
		return err
	}
	consumer, err := command.NewConsumer(handler, queue, logger)
	if err != nil {
		return err
	}
	if err := consumer.Subscribe(nc, cfg.NATS.InboundSubject); err != nil {
		return err
	}
	defer func() {
		_ = consumer.Close()
	}()

	watcher, err := store.WatchSettings(settingsPath, settings, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = watcher.Close()
	}()

	scheduler, err := reminder.NewScheduler(tasks, settings, queue, loc, logger,
		reminder.WithInterval(cfg.Sweep.Interval),
		reminder.WithPace(cfg.Sweep.Pace),
		reminder.WithClock(clock),
		reminder.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}
	if err := scheduler.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))

	scheduler.Stop()
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("monitoring server shutdown failed", zap.Error(err))
		}
	}

	logger.Info("shutdown complete")
	return nil
}
