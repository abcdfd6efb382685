package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Harshitk-cp/veritas/internal/api"
	"github.com/Harshitk-cp/veritas/internal/buildconfig"
	"github.com/Harshitk-cp/veritas/internal/config"
	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/Harshitk-cp/veritas/internal/embedding"
	"github.com/Harshitk-cp/veritas/internal/notify"
	"github.com/Harshitk-cp/veritas/internal/probe"
	"github.com/Harshitk-cp/veritas/internal/scoring"
	"github.com/Harshitk-cp/veritas/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}

	logger := newLogger(config.LogLevel())
	defer func() { _ = logger.Sync() }()

	dbURL := config.DatabaseURL()
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("failed to ping database", zap.Error(err))
	}
	logger.Info("connected to database")

	if err := store.Migrate(ctx, pool, config.MigrationsPath(), logger); err != nil {
		logger.Fatal("failed to apply migrations", zap.Error(err))
	}

	scoringCfg, err := scoring.LoadConfig(config.ScoringConfigPath())
	if err != nil {
		logger.Fatal("failed to load scoring config", zap.Error(err))
	}

	embedder, err := embedding.NewClient(embedding.Config{
		Provider:  config.EmbeddingProvider(),
		APIKey:    config.EmbeddingAPIKey(),
		BaseURL:   config.OpenAIBaseURL(),
		CacheSize: config.EmbeddingCacheSize(),
	})
	if err != nil {
		logger.Fatal("failed to create embedding client", zap.Error(err))
	}
	logger.Info("embedding provider", zap.String("provider", config.EmbeddingProvider()))

	var notifier domain.Notifier = notify.NopNotifier{}
	if url := config.NATSURL(); url != "" {
		nc, err := notify.Connect(url, logger)
		if err != nil {
			logger.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer func() { _ = nc.Drain() }()
		notifier = notify.NewNATSNotifier(nc, logger)
		logger.Info("publishing score changes", zap.String("subject", notify.SubjectPrefix+".>"))
	}

	prober := probe.NewTCPProber(scoringCfg.ProbeHosts, config.ProbeTimeout(), config.ProbeRetries(), logger)

	app := api.NewApp(pool, api.Dependencies{
		Scoring:  scoringCfg,
		Embedder: embedder,
		Notifier: notifier,
		Prober:   prober,
	}, logger)
	app.Start()

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting",
			zap.String("addr", addr),
			zap.String("version", buildconfig.Get().String()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	app.Stop()
	logger.Info("server stopped")
}

func newLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
