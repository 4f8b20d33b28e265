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

	"github.com/rockwatchstack/rockwatch/internal/api"
	"github.com/rockwatchstack/rockwatch/internal/auth"
	"github.com/rockwatchstack/rockwatch/internal/cache"
	"github.com/rockwatchstack/rockwatch/internal/config"
	"github.com/rockwatchstack/rockwatch/internal/ingest"
	"github.com/rockwatchstack/rockwatch/internal/metrics"
	"github.com/rockwatchstack/rockwatch/internal/pipeline"
	"github.com/rockwatchstack/rockwatch/internal/poller"
	"github.com/rockwatchstack/rockwatch/internal/service"
	"github.com/rockwatchstack/rockwatch/internal/store"
	"github.com/rockwatchstack/rockwatch/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting rockwatch", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var cacheProvider cache.Provider = cache.NewMemoryProvider(cfg.Cache.StatsTTL)
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("valkey cache unavailable, using in-memory cache", slog.Any("error", err))
		} else {
			cacheProvider = provider
		}
	}
	defer cacheProvider.Close()

	st := store.New()
	if cfg.Seed.Demo {
		store.SeedDemo(st)
		logger.Info("seeded demo data", slog.Int("sites", st.SiteCount()))
	}

	issuer, err := auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Error("failed to initialise token issuer", slog.Any("error", err))
		os.Exit(1)
	}

	jobs := pipeline.NewJobManager(logger, 0)
	dashboard := service.NewDashboard(logger, st, cacheProvider, cfg.Cache.StatsTTL, cfg.Cache.SummaryTTL)

	var subscriber *ingest.Subscriber
	if cfg.Ingest.Enabled && cfg.Ingest.Broker != "" {
		subscriber, err = ingest.NewSubscriber(ingest.Config{
			Broker:       cfg.Ingest.Broker,
			ClientID:     cfg.Ingest.ClientID,
			Username:     cfg.Ingest.Username,
			Password:     cfg.Ingest.Password,
			ReadingTopic: cfg.Ingest.ReadingTopic,
		}, st, logger)
		if err != nil {
			logger.Warn("mqtt ingest unavailable", slog.Any("error", err))
			subscriber = nil
		} else if err := subscriber.Subscribe(); err != nil {
			logger.Warn("mqtt subscribe failed", slog.Any("error", err))
			subscriber.Close()
			subscriber = nil
		}
	}

	server, err := api.NewServer(cfg.Server, api.Deps{
		Logger:    logger,
		Store:     st,
		Dashboard: dashboard,
		Issuer:    issuer,
		Jobs:      jobs,
	})
	if err != nil {
		logger.Error("failed to create HTTP server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	refresh := poller.New("dashboard-refresh", cfg.Refresh.Interval, dashboard.Refresh, logger)
	refresh.Start(ctx)

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
			logger.Error("HTTP server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	refresh.Stop()
	if subscriber != nil {
		subscriber.Close()
	}
	jobs.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
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
	logger.Info("rockwatch stopped")
}
