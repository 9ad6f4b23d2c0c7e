package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flowlens/flowlens-api/internal/api"
	"github.com/flowlens/flowlens-api/internal/cache"
	"github.com/flowlens/flowlens-api/internal/config"
	"github.com/flowlens/flowlens-api/internal/metrics"
	"github.com/flowlens/flowlens-api/internal/repo"
	"github.com/flowlens/flowlens-api/internal/services"
	"github.com/flowlens/flowlens-api/internal/store"
	"github.com/flowlens/flowlens-api/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting flowlens-api", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	incidentStore := store.New(store.WithLogger(logger))
	incidentStore.Seed()

	workflowClient := repo.NewWorkflowClient(cfg.Workflow.BaseURL, cfg.Workflow.Timeout)
	llmClient := repo.NewLLMClient(cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.Timeout)

	narrativeCache := cache.NewMemoryProvider()
	defer narrativeCache.Close()

	copilot := services.NewCopilot(
		logger,
		incidentStore,
		workflowClient,
		llmClient,
		narrativeCache,
		cfg.Narrative,
		cfg.Policy.Metrics(),
	)

	server := api.NewServer(cfg.Server, logger, incidentStore, copilot)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("api server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.GracefulTimeout())
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("flowlens-api stopped")
}
