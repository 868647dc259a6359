// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"seller-onboarding/internal/audit"
	"seller-onboarding/internal/cache"
	"seller-onboarding/internal/common/camunda"
	"seller-onboarding/internal/common/config"
	"seller-onboarding/internal/common/database"
	"seller-onboarding/internal/common/logger"
	"seller-onboarding/internal/common/observability"
	"seller-onboarding/internal/marketplace"
	"seller-onboarding/internal/onboarding"

	as "seller-onboarding/internal/workers/onboarding/application-status"
	wcs "seller-onboarding/internal/workers/onboarding/wizard-complete-step"
	wl "seller-onboarding/internal/workers/onboarding/wizard-load"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting onboarding worker manager...",
		zap.String("marketplace", cfg.Marketplace.BaseURL),
		zap.String("family", cfg.Marketplace.Family),
		zap.Bool("durableSkip", cfg.Onboarding.DurableSkip),
	)

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Warn("otel metrics disabled", zap.Error(err))
	}
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	var zb *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zb, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zb.Close()
	zapLog.Info("Zeebe client connected successfully")

	// --- Advisory cache: Redis when configured, in-process otherwise ---
	var (
		redis      *database.RedisClient
		stateCache cache.Cache = cache.NewMemory()
	)
	if cfg.Database.Redis.Address != "" {
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()
		stateCache = cache.NewRedisCache(redis, config.GetDuration(cfg.Onboarding.CacheTTL))
		zapLog.Info("Redis connected successfully")
	} else {
		zapLog.Warn("database.redis.address not set, using in-process cache")
	}

	// --- Audit trail ---
	var recorder audit.Recorder = audit.Noop{}
	if cfg.Onboarding.AuditEnabled {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()

		pgRecorder := audit.NewPostgresRecorder(pg)
		if err := pgRecorder.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("audit schema setup failed", zap.Error(err))
		}
		recorder = pgRecorder
		zapLog.Info("PostgreSQL audit trail enabled")
	}

	market := marketplace.New(cfg.Marketplace, log)
	engine := onboarding.Deps{
		Store:       market.EntityStore(),
		Cache:       stateCache,
		Audit:       recorder,
		Logger:      log,
		DurableSkip: cfg.Onboarding.DurableSkip,
	}

	// --- Workers ---
	var workers []*camunda.CamundaWorker
	start := func(taskType string, handler camunda.JobHandlerFunc) {
		if w := camunda.NewWorker(zb.GetClient(), taskType, config.GetWorkerConfig(cfg, taskType), handler, log); w != nil {
			workers = append(workers, w)
		}
	}

	start(wl.TaskType, wl.NewHandler(wl.LoadConfig(cfg), wl.Dependencies{
		Engine: engine, Observability: obs, Logger: log,
	}).Handle)
	start(wcs.TaskType, wcs.NewHandler(wcs.LoadConfig(cfg), wcs.Dependencies{
		Engine: engine, Observability: obs, Logger: log,
	}).Handle)
	start(as.TaskType, as.NewHandler(as.LoadConfig(cfg), as.Dependencies{
		Engine: engine, Observability: obs, Logger: log,
	}).Handle)

	zapLog.Info("Onboarding workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", nil)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{}
		status := http.StatusOK
		if err := zb.HealthCheck(r.Context()); err != nil {
			checks["zeebe"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if redis != nil {
			if err := redis.Ping(r.Context()); err != nil {
				checks["redis"] = err.Error()
				status = http.StatusServiceUnavailable
			}
		}
		label := "ready"
		if status != http.StatusOK {
			label = "not ready"
		}
		writeStatus(w, status, label, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.App.HealthAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", cfg.App.HealthAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop(shutdownCtx)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped")
}

func writeStatus(w http.ResponseWriter, code int, status string, checks map[string]string) {
	body := map[string]interface{}{"status": status}
	if len(checks) > 0 {
		body["checks"] = checks
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
