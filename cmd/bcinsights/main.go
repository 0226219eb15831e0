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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bcinsights/bcinsights/internal/api"
	"github.com/bcinsights/bcinsights/internal/cache"
	"github.com/bcinsights/bcinsights/internal/config"
	"github.com/bcinsights/bcinsights/internal/dataset"
	"github.com/bcinsights/bcinsights/internal/engine"
	"github.com/bcinsights/bcinsights/internal/filter"
	"github.com/bcinsights/bcinsights/internal/metrics"
	"github.com/bcinsights/bcinsights/internal/services"
	"github.com/bcinsights/bcinsights/internal/session"
	"github.com/bcinsights/bcinsights/internal/survival"
	"github.com/bcinsights/bcinsights/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting bcinsights",
		slog.String("grpc_address", cfg.Server.Address),
		slog.String("http_address", cfg.Server.HTTPAddress),
		slog.String("data_dir", cfg.Data.Dir),
	)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	pageCache, err := cache.New(cfg.Cache, logger)
	if err != nil {
		logger.Warn("page cache unavailable, rendering uncached", slog.Any("error", err))
		pageCache = cache.NoopProvider{}
	}
	defer pageCache.Close()

	policy, err := filter.LoadPolicy(cfg.Filters.PolicyPath, logger)
	if err != nil {
		logger.Error("failed to load filter policy", slog.Any("error", err))
		os.Exit(1)
	}
	policy, err = policy.WithYears(cfg.Filters.MinYear, cfg.Filters.MaxYear)
	if err != nil {
		logger.Error("invalid filter year bounds", slog.Any("error", err))
		os.Exit(1)
	}

	estimator, err := survival.NewEstimator(survival.Options{
		Alpha:  cfg.Survival.Alpha,
		Method: survival.CIMethod(cfg.Survival.CIMethod),
	})
	if err != nil {
		logger.Error("invalid survival settings", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader := dataset.NewLoader(cfg.Data.Dir, logger)
	if len(cfg.Data.Preload) > 0 {
		loaded := loader.Preload(ctx, cfg.Data.Preload...)
		logger.Info("datasets preloaded", slog.Int("loaded", loaded), slog.Int("requested", len(cfg.Data.Preload)))
	}

	sessions := session.NewStore(cfg.Sessions.TTL)
	pipeline := engine.NewPipeline(logger, loader, filter.NewEngine(policy), estimator)
	dashboard := services.NewDashboardService(logger, pipeline, loader, sessions, pageCache, services.Options{
		ViewTTL:   cfg.Cache.ViewTTL,
		PNGWidth:  cfg.Render.PNGWidth,
		PNGHeight: cfg.Render.PNGHeight,
	})

	server, err := api.NewServer(cfg.Server, api.NewGRPCDashboard(dashboard, logger))
	if err != nil {
		logger.Error("failed to create gRPC server", slog.Any("error", err))
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddress,
		Handler:           api.NewRouter(api.NewRESTHandler(dashboard, logger)),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	go func() {
		logger.Info("http server listening", slog.String("address", cfg.Server.HTTPAddress))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server exited", slog.Any("error", err))
			stop()
		}
	}()

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
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	if cfg.Sessions.TTL > 0 {
		go sweepSessions(ctx, sessions, cfg.Sessions.TTL, logger)
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("http server shutdown", slog.Any("error", err))
	}

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	logger.Info("bcinsights stopped", slog.Duration("render_p95", dashboard.LatencyP95()))
}

// sweepSessions evicts idle sessions every half TTL until ctx ends.
func sweepSessions(ctx context.Context, sessions *session.Store, ttl time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if dropped := sessions.Sweep(); dropped > 0 {
				logger.Debug("idle sessions evicted", slog.Int("dropped", dropped), slog.Int("remaining", sessions.Len()))
			}
		}
	}
}
