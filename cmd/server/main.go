// Package main starts the website API server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/onyxenersol/solarsite/internal/api"
	"github.com/onyxenersol/solarsite/internal/auth"
	"github.com/onyxenersol/solarsite/internal/catalog"
	"github.com/onyxenersol/solarsite/internal/config"
	"github.com/onyxenersol/solarsite/internal/contact"
	"github.com/onyxenersol/solarsite/internal/convert"
	"github.com/onyxenersol/solarsite/internal/database"
	"github.com/onyxenersol/solarsite/internal/download"
	"github.com/onyxenersol/solarsite/internal/gallery"
	"github.com/onyxenersol/solarsite/internal/heic"
	"github.com/onyxenersol/solarsite/internal/objectstore"
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

	downloader := download.New(store, cfg.MinObjectBytes, logger)
	engine := heic.NewConverter(logger)
	converter := convert.NewService(store, downloader, engine, cfg.JPEGQuality, logger)

	cat := catalog.NewPostgresStore(pool)
	gal := gallery.NewService(cat, logger)

	contacts := contact.NewPostgresStore(pool)
	mailer := contact.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, logger)
	sms := contact.NewLogSMSSender(logger)
	notifier := contact.NewNotifier(mailer, cfg.CompanyEmail, cfg.FromEmail, logger)

	signer := auth.NewSigner(cfg.AdminSecret)

	srv := api.New(cfg, gal, converter, contacts, notifier, mailer, sms, signer, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}
