package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ChinmayaKolhe/VicharManthan/internal/api"
	"github.com/ChinmayaKolhe/VicharManthan/internal/config"
	"github.com/ChinmayaKolhe/VicharManthan/internal/database"
	"github.com/ChinmayaKolhe/VicharManthan/internal/database/mongostore"
	"github.com/ChinmayaKolhe/VicharManthan/internal/events"
	"github.com/ChinmayaKolhe/VicharManthan/internal/logging"
	"github.com/ChinmayaKolhe/VicharManthan/internal/presence"
	"github.com/ChinmayaKolhe/VicharManthan/internal/server"
	"github.com/ChinmayaKolhe/VicharManthan/internal/stats"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and websocket hub",
	RunE:  runServe,
}

func openStore(ctx context.Context, cfg *config.Config) (database.Repository, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		repo, err := mongostore.NewRepository(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case config.DriverPostgres:
		repo, err := database.NewPgRepository(cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("store close", "err", err)
		}
	}()
	logger.Info("store ready", "driver", cfg.StoreDriver)

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)
	statsUpdater.Run()
	defer statsUpdater.Stop()

	var mirror server.PresenceMirror
	if cfg.RedisAddr != "" {
		rdb, err := presence.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()

		m := presence.NewRedisMirror(rdb, cfg.PresenceTTL, logger.With("component", "presence"))
		go m.Run(ctx)
		mirror = m
		logger.Info("mirroring presence to redis", "addr", cfg.RedisAddr)
	}

	hub := server.NewHub(logger, statsUpdater, mirror)
	go hub.Run()

	var subscriber *events.NotificationSubscriber
	if cfg.NatsURL != "" {
		nc, err := events.Connect(cfg.NatsURL, logger)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer nc.Close()

		subscriber = events.NewNotificationSubscriber(nc, cfg.NotificationSubject, hub, logger)
		if err := subscriber.Start(); err != nil {
			return fmt.Errorf("nats: %w", err)
		}
	}

	app := api.NewApp(mux, logger, hub, db, cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server", "err", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown", "err", err)
	}

	if subscriber != nil {
		if err := subscriber.Drain(); err != nil {
			logger.Error("nats drain", "err", err)
		}
	}

	logger.Info("shutting down hub...")
	if err := hub.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("hub shutdown: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}
