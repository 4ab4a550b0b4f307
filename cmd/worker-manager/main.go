// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"probate-resolver/internal/app"
	"probate-resolver/internal/common/camunda"
	"probate-resolver/internal/common/config"
	"probate-resolver/internal/common/logger"

	por "probate-resolver/internal/workers/identity/parse-owner-record"
	rr "probate-resolver/internal/workers/identity/resolve-representative"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.Build(logger.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{cfg.Logging.Output},
	})
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	if err := config.ValidateWorkerRuntime(cfg); err != nil {
		zapLog.Fatal("invalid worker configuration", zap.Error(err))
	}

	zapLog.Info("Starting worker manager...", zap.String("version", cfg.App.Version))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver, err := app.New(ctx, cfg, zapLog, app.Options{Sinks: true})
	if err != nil {
		zapLog.Fatal("resolver bootstrap failed", zap.Error(err))
	}
	defer resolver.Close()

	zeebe, err := camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		Retry:                  camunda.DefaultRetryPolicy(),
	}, log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()
	zapLog.Info("Zeebe client connected successfully")

	var workers []*camunda.Worker

	parseCfg := config.GetWorkerConfig(cfg, por.TaskType)
	parser := por.NewHandler(&por.Config{
		Timeout:            config.GetDuration(parseCfg.Timeout),
		DefaultState:       cfg.Resolver.DefaultState,
		MaxRepresentatives: cfg.Resolver.MaxRepresentatives,
	}, log)
	if w := camunda.StartWorker(zeebe.GetClient(), por.TaskType, parseCfg, parser.Handle, log); w != nil {
		workers = append(workers, w)
	}

	resolveCfg := config.GetWorkerConfig(cfg, rr.TaskType)
	representative := rr.NewHandler(&rr.Config{
		Timeout:            config.GetDuration(resolveCfg.Timeout),
		DefaultState:       cfg.Resolver.DefaultState,
		MaxRepresentatives: cfg.Resolver.MaxRepresentatives,
	}, resolver.Engine, resolver.Sink, log)
	if w := camunda.StartWorker(zeebe.GetClient(), rr.TaskType, resolveCfg, representative.Handle, log); w != nil {
		workers = append(workers, w)
	}

	zapLog.Info("workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := zeebe.HealthCheck(r.Context()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "not ready")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	if cfg.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	server := &http.Server{Addr: cfg.Metrics.Address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Metrics.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping workers...")

	for _, w := range workers {
		w.Stop(30 * time.Second)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}
