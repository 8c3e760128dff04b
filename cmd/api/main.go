package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"io.winapps.qrbackend/internal/config"
	"io.winapps.qrbackend/internal/db"
	"io.winapps.qrbackend/internal/handlers"
	"io.winapps.qrbackend/internal/jobs"
	"io.winapps.qrbackend/internal/logging"
	"io.winapps.qrbackend/internal/qrcode"
	"io.winapps.qrbackend/internal/server"
	"io.winapps.qrbackend/internal/storage"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("%v", err)
	}
}

func run() error {
	// Load environment variables from .env file when present
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	encoder, err := qrcode.NewEncoder(cfg.QRSize, cfg.QRRecovery)
	if err != nil {
		return fmt.Errorf("failed to initialize QR encoder: %w", err)
	}

	store := storage.NewDiskStore(cfg.StorageDir())

	var recorders []handlers.GenerationRecorder

	// Initialize PostgreSQL ledger
	if cfg.LedgerEnabled() {
		postgresDB, err := db.InitPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		defer postgresDB.Close()
		recorders = append(recorders, db.NewLedger(postgresDB))
	}

	// Initialize Redis cache
	if cfg.CacheEnabled() {
		redisClient, err := db.InitRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("failed to initialize Redis: %w", err)
		}
		defer redisClient.Close()
		recorders = append(recorders, db.NewGenerationCache(redisClient, cfg.RedisTTL))
	}

	sweeper, err := jobs.NewSweeper(store, cfg.SweepSchedule, cfg.SweepMaxAge, logger)
	if err != nil {
		return err
	}
	sweeper.Start()
	defer sweeper.Stop(context.Background())

	router := server.NewRouter(server.Dependencies{
		Encoder:       encoder,
		Store:         store,
		Recorders:     recorders,
		RecordTimeout: cfg.RecordTimeout,
		Logger:        logger,
	})

	logger.Infow("configuration loaded",
		"address", cfg.Address,
		"storage_dir", store.Dir(),
		"ledger", cfg.LedgerEnabled(),
		"cache", cfg.CacheEnabled(),
	)

	return server.New(cfg.Address, router, cfg.ShutdownTimeout, logger).Run(ctx)
}
