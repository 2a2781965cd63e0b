// Command server runs the guardrail service: scheduled window evaluation,
// the HTTP API, a websocket feed of results and Prometheus metrics.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"ads-guardrail/internal/api"
	"ads-guardrail/internal/config"
	"ads-guardrail/internal/decision"
	"ads-guardrail/internal/notify"
	"ads-guardrail/internal/observability"
	"ads-guardrail/internal/pipeline"
	"ads-guardrail/internal/scheduler"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfgPath := "configs/guardrail.yaml"
	if v := os.Getenv("GUARDRAIL_CONFIG"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("config validation", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	if cfg.Storage.UseFixtures {
		if err := pipeline.LoadFixtures(ctx, st.days); err != nil {
			return err
		}
		logger.Info("demo fixtures loaded", "experiment_id", pipeline.FixtureExperimentID)
	}

	metrics := observability.DefaultMetrics
	hub := notify.NewHub(logger, cfg.Notify.ClientBuffer).WithMetrics(metrics)
	defer hub.Close()

	builder := decision.NewBuilder(cfg.GuardrailPolicy())
	runner := pipeline.NewRunner(st.days, st.reports, builder, logger).
		WithPublisher(hub).
		WithMetrics(metrics).
		WithBackends(cfg.Storage.DaysBackend, cfg.Storage.ReportsBackend).
		WithParallelism(cfg.Schedule.Parallelism).
		WithOutputDir(cfg.Output.Dir)

	sched := scheduler.NewScheduler(ctx, runner, cfg.WindowSpecs(), logger).WithMetrics(metrics)
	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		return err
	}
	sched.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		sched.Stop(stopCtx)
	}()

	if cfg.Schedule.RunOnStart {
		go func() {
			if _, err := sched.RunNow(ctx); err != nil {
				logger.Error("startup evaluation aborted", "error", err)
			}
		}()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(api.RequestLogger(logger))
	api.SetupRoutes(router, api.NewHandlers(builder, runner, st.reports, logger), hub)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
