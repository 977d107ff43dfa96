// cmd/assistant-server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"versailles-assistant/internal/api"
	"versailles-assistant/internal/bootstrap"
	"versailles-assistant/internal/common/camunda"
	"versailles-assistant/internal/common/config"
	"versailles-assistant/internal/common/logger"
	"versailles-assistant/internal/common/observability"
	"versailles-assistant/pkg/registry"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog).With(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	zapLog.Info("Starting assistant server...", zap.String("environment", cfg.App.Environment))

	obs, err := observability.New(observability.Options{
		ServiceName:    cfg.App.Name,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
		SampleRatio:    cfg.Tracing.SampleRatio,
	})
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	defer func() {
		if err := obs.Shutdown(context.Background()); err != nil {
			zapLog.Warn("observability shutdown failed", zap.Error(err))
		}
	}()

	ctx := context.Background()

	app, err := bootstrap.Build(ctx, cfg, log, obs, bootstrap.Options{
		ConnectAttempts: 10,
		InitialDelay:    2 * time.Second,
	})
	if err != nil {
		zapLog.Fatal("service graph failed", zap.Error(err))
	}
	defer app.Close()

	// --- Optional job workers ---
	var zeebe *camunda.Client
	var workers []*camunda.CamundaWorker
	if cfg.Camunda.Enabled {
		reg, err := registry.LoadRegistry(cfg.Registry.Path)
		if err != nil {
			zapLog.Warn("activity registry unavailable", zap.String("path", cfg.Registry.Path), zap.Error(err))
		} else if err := reg.Validate(); err != nil {
			zapLog.Fatal("activity registry invalid", zap.Error(err))
		}

		zeebe, err = camunda.NewClient(cfg.Camunda.BrokerAddress, config.GetDuration(cfg.Camunda.RequestTimeout))
		if err != nil {
			zapLog.Fatal("zeebe client failed", zap.Error(err))
		}
		workers = app.RegisterWorkers(zeebe.GetClient(), reg)
		zapLog.Info("Job workers registered", zap.Int("count", len(workers)))
	}

	// --- HTTP API ---
	deps := app.APIDependencies()
	if zeebe != nil {
		deps.Ready["zeebe"] = zeebe.HealthCheck
	}
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      api.NewServer(app.APIConfig(), deps).Router(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}
	go func() {
		zapLog.Info("HTTP API listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP API failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP API", zap.Error(err))
	}
	for _, w := range workers {
		w.Stop()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	zapLog.Info("Assistant server stopped gracefully")
}
