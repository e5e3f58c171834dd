package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/quizhive/quizhive/internal/api"
	"github.com/quizhive/quizhive/internal/config"
	"github.com/quizhive/quizhive/internal/db"
	"github.com/quizhive/quizhive/internal/digest"
	"github.com/quizhive/quizhive/internal/messenger"
	"github.com/quizhive/quizhive/internal/metrics"
	"github.com/quizhive/quizhive/internal/ratelimiter"
	"github.com/quizhive/quizhive/internal/repository"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	store := repository.NewPgStore(pool)
	msgr := newMessenger(cfg)
	limiter := ratelimiter.New(cfg.SendRatePerSec)

	// ---- digest scheduler ----
	composer := digest.NewComposer(store, msgr, limiter, logger, m.DigestHooks())
	scheduler := digest.NewScheduler(
		composer, msgr,
		cfg.DigestCadenceMinutes,
		cfg.DigestProbeURL, cfg.DigestProbeTimeout,
		logger,
	)
	scheduler.Start(ctx)

	// ---- HTTP server ----
	router := api.NewRouter(store, msgr, scheduler, m.LoaderHooks(), reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop the digest scheduler; a pass already underway finishes first,
	//    then the scheduler releases its owned messenger and probe client.
	scheduler.Stop()

	logger.Info("server stopped cleanly")
}

func newMessenger(cfg *config.Config) messenger.Messenger {
	if cfg.MessengerDriver == "sendgrid" {
		return messenger.NewSendgridMessenger(cfg.SendgridAPIKey, cfg.DigestFromName, cfg.DigestFromEmail)
	}
	return messenger.NewWebhookMessenger(cfg.MessengerTimeout)
}
