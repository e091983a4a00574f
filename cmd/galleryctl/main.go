// Package main is the gallery operations CLI: reconciliation, accessibility
// audits, batch HEIC conversion and admin token minting.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/onyxenersol/solarsite/internal/auth"
	"github.com/onyxenersol/solarsite/internal/catalog"
	"github.com/onyxenersol/solarsite/internal/config"
	"github.com/onyxenersol/solarsite/internal/database"
	"github.com/onyxenersol/solarsite/internal/download"
	"github.com/onyxenersol/solarsite/internal/heic"
	"github.com/onyxenersol/solarsite/internal/objectstore"
	"github.com/onyxenersol/solarsite/internal/queue"
	"github.com/onyxenersol/solarsite/internal/reconcile"
	"github.com/onyxenersol/solarsite/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "galleryctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "galleryctl",
		Short: "Gallery catalog operations",
		Long: `galleryctl reconciles the object store with the gallery catalog, audits
file accessibility, runs batch HEIC conversion, and mints admin tokens.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newSyncCmd(),
		newAuditCmd(),
		newConvertCmd(),
		newTokenCmd(),
	)
	return cmd
}

// env bundles the dependencies shared by the catalog commands.
type env struct {
	cfg     *config.Config
	logger  *zap.Logger
	catalog catalog.Store
	store   *objectstore.Client
	syncer  *reconcile.Syncer
	proc    *worker.Processor
	close   func()
}

func setup(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	store, err := objectstore.New(cfg)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init object store: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}

	cat := catalog.NewPostgresStore(pool)
	downloader := download.New(store, cfg.MinObjectBytes, logger)
	engine := heic.NewConverter(logger)

	return &env{
		cfg:     cfg,
		logger:  logger,
		catalog: cat,
		store:   store,
		syncer:  reconcile.NewSyncer(store, cat, downloader, cfg.LocalGalleryDir, logger),
		proc:    worker.NewProcessor(cat, store, downloader, engine, cfg.JPEGQuality, logger),
		close: func() {
			_ = logger.Sync()
			pool.Close()
		},
	}, nil
}

func newSyncCmd() *cobra.Command {
	var clearStale bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Catalog object-store files not yet in the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			if clearStale {
				removed, err := e.syncer.ClearStale(ctx)
				if err != nil {
					return fmt.Errorf("clear stale rows: %w", err)
				}
				fmt.Printf("Removed %d stale unconverted HEIC rows\n", removed)
			}

			result, err := e.syncer.Sync(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Synced %d new files\n", result.Synced)
			for _, msg := range result.Errors {
				fmt.Printf("  error: %s\n", msg)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearStale, "clear-stale", false, "Delete unconverted HEIC rows before syncing")
	return cmd
}

func newAuditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check every cataloged file is still accessible",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			result, err := e.syncer.Audit(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Accessible: %d\nInaccessible: %d\n", result.Accessible, result.Inaccessible)
			for _, msg := range result.Problems {
				fmt.Printf("  %s\n", msg)
			}
			if result.Inaccessible > 0 {
				return fmt.Errorf("%d files inaccessible", result.Inaccessible)
			}
			return nil
		},
	}
}

func newConvertCmd() *cobra.Command {
	var inline bool
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert pending HEIC files to JPEG",
		Long: `Enqueues every unconverted HEIC row for the background worker. With
--inline the conversions run in this process instead, useful when no worker
or Redis is available.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			pending, err := e.proc.Pending(ctx)
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Println("No pending HEIC files")
				return nil
			}

			if inline {
				converted := 0
				for _, file := range pending {
					if err := e.proc.ConvertFile(ctx, file.ID); err != nil {
						fmt.Printf("  failed %s: %v\n", file.OriginalPath, err)
						continue
					}
					converted++
				}
				fmt.Printf("Converted %d/%d files\n", converted, len(pending))
				return nil
			}

			client := asynq.NewClient(asynq.RedisClientOpt{
				Addr:     e.cfg.RedisAddr,
				Password: e.cfg.RedisPassword,
				DB:       e.cfg.RedisDB,
			})
			defer client.Close()
			for _, file := range pending {
				err := queue.EnqueueConvert(ctx, client, queue.ConvertPayload{
					FileID:       file.ID,
					OriginalPath: file.OriginalPath,
				})
				if err != nil {
					return fmt.Errorf("enqueue %s: %w", file.OriginalPath, err)
				}
			}
			fmt.Printf("Enqueued %d files for conversion\n", len(pending))
			return nil
		},
	}
	cmd.Flags().BoolVar(&inline, "inline", false, "Convert in-process instead of enqueueing")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			signer := auth.NewSigner(cfg.AdminSecret)
			fmt.Println(signer.Token(subject, ttl))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "admin", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
