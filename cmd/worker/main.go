// Package main runs the background conversion worker.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/onyxenersol/solarsite/internal/catalog"
	"github.com/onyxenersol/solarsite/internal/config"
	"github.com/onyxenersol/solarsite/internal/database"
	"github.com/onyxenersol/solarsite/internal/download"
	"github.com/onyxenersol/solarsite/internal/heic"
	"github.com/onyxenersol/solarsite/internal/objectstore"
	"github.com/onyxenersol/solarsite/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal("ensure schema", zap.Error(err))
	}

	store, err := objectstore.New(cfg)
	if err != nil {
		logger.Fatal("init object store", zap.Error(err))
	}
	if err := store.EnsureBucket(ctx); err != nil {
		logger.Fatal("ensure bucket", zap.Error(err))
	}

	cat := catalog.NewPostgresStore(pool)
	downloader := download.New(store, cfg.MinObjectBytes, logger)
	engine := heic.NewConverter(logger)
	processor := worker.NewProcessor(cat, store, downloader, engine, cfg.JPEGQuality, logger)

	server := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.ProcessingPool,
	})

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	logger.Info("conversion worker starting", zap.Int("concurrency", cfg.ProcessingPool))
	if err := server.Run(processor.Handler()); err != nil {
		logger.Error("worker stopped", zap.Error(err))
		os.Exit(1)
	}
}
