// Command habitd runs the habit tracking and collectible reward service.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "github.com/habitloop/habitd/internal/app"
	"github.com/habitloop/habitd/internal/app/collectibles"
	"github.com/habitloop/habitd/internal/app/httpapi"
	"github.com/habitloop/habitd/internal/app/storage/postgres"
	"github.com/habitloop/habitd/internal/config"
	"github.com/habitloop/habitd/internal/platform/database"
	"github.com/habitloop/habitd/internal/platform/migrations"
	"github.com/habitloop/habitd/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.New(logger.LoggingConfig{Level: cfg.LogLevel, Format: cfg.LogFormat}, "habitd")

	if err := run(cfg, log); err != nil {
		log.WithError(err).Error("service exited")
		os.Exit(1)
	}
}

func run(cfg config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores := app.Stores{}
	if cfg.DatabaseURL != "" {
		db, err := database.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := migrations.Apply(ctx, db); err != nil {
			return err
		}

		store := postgres.New(db)
		stores = app.Stores{Users: store, Habits: store, Completions: store, Awards: store}
		log.Info("using postgres storage")
	} else {
		log.Warn("DATABASE_URL not set; using in-memory storage")
	}

	var pool collectibles.PoolProvider
	if info, err := os.Stat(cfg.AwardsDir); err == nil && info.IsDir() {
		pool = collectibles.NewDirPool(cfg.AwardsDir)
	} else {
		log.WithField("dir", cfg.AwardsDir).Warn("awards directory unavailable; collectible pool is empty")
	}

	application, err := app.New(stores, pool, log)
	if err != nil {
		return err
	}
	if err := application.Start(ctx); err != nil {
		return err
	}

	handler := httpapi.NewHandler(application, httpapi.Config{
		JWTSecret:      []byte(cfg.JWTSecret),
		TokenTTL:       cfg.TokenTTL,
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}, log)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", cfg.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return application.Stop(shutdownCtx)
}
