// Package worker runs batch HEIC conversion: each job downloads the
// original, converts it, caches the JPEG in the blob store and rewrites the
// catalog row. The same code path backs the asynq worker and the CLI's
// inline mode.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/onyxenersol/solarsite/internal/catalog"
	"github.com/onyxenersol/solarsite/internal/convert"
	"github.com/onyxenersol/solarsite/internal/download"
	"github.com/onyxenersol/solarsite/internal/objectstore"
	"github.com/onyxenersol/solarsite/internal/queue"
)

// Processor converts pending HEIC catalog rows.
type Processor struct {
	catalog    catalog.Store
	store      objectstore.Store
	downloader *download.Downloader
	engine     convert.Engine
	quality    int
	logger     *zap.Logger
}

// NewProcessor constructs a Processor. quality must match the serving
// layer's setting so batch and on-demand conversions share cache keys.
func NewProcessor(cat catalog.Store, store objectstore.Store, dl *download.Downloader, engine convert.Engine, quality int, logger *zap.Logger) *Processor {
	return &Processor{
		catalog:    cat,
		store:      store,
		downloader: dl,
		engine:     engine,
		quality:    quality,
		logger:     logger.With(zap.String("component", "worker")),
	}
}

// Handler registers the convert job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ConvertGalleryTask, p.handleConvert)
	return mux
}

func (p *Processor) handleConvert(ctx context.Context, task *asynq.Task) error {
	var payload queue.ConvertPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := p.ConvertFile(ctx, payload.FileID); err != nil {
		p.logger.Error("conversion job failed",
			zap.String("file_id", payload.FileID),
			zap.String("original_path", payload.OriginalPath),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// ConvertFile converts one catalog row end to end. Rows already converted
// are skipped, so retries and duplicate enqueues are harmless.
func (p *Processor) ConvertFile(ctx context.Context, id string) error {
	file, err := p.catalog.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load catalog row: %w", err)
	}
	if file.IsConverted {
		p.logger.Debug("row already converted, skipping", zap.String("file_id", id))
		return nil
	}

	original, err := p.downloader.Download(ctx, file.OriginalPath)
	if err != nil {
		return fmt.Errorf("download original: %w", err)
	}

	jpeg, err := p.engine.Convert(original, p.quality)
	if err != nil {
		return fmt.Errorf("convert %s: %w", file.OriginalPath, err)
	}

	cacheKey := convert.CacheKey(file.OriginalPath, p.quality)
	if err := p.store.Upload(ctx, cacheKey, jpeg, "image/jpeg"); err != nil {
		return fmt.Errorf("store converted object: %w", err)
	}

	upd := catalog.ConvertedUpdate{
		Filename:         jpegFilename(file.Filename),
		ContentType:      "image/jpeg",
		FileSize:         strconv.Itoa(len(jpeg)),
		ObjectStorageURL: "/api/objects/" + url.PathEscape(cacheKey),
	}
	if err := p.catalog.UpdateConverted(ctx, id, upd); err != nil {
		return fmt.Errorf("update catalog row: %w", err)
	}

	p.logger.Info("converted gallery file",
		zap.String("file_id", id),
		zap.String("original_path", file.OriginalPath),
		zap.String("cache_key", cacheKey),
		zap.Int("bytes", len(jpeg)),
	)
	return nil
}

// Pending returns the unconverted HEIC/HEIF rows, the batch the CLI and
// scheduler feed to ConvertFile.
func (p *Processor) Pending(ctx context.Context) ([]catalog.GalleryFile, error) {
	var pending []catalog.GalleryFile
	for _, mime := range []string{"image/heic", "image/heif"} {
		files, err := p.catalog.ListByContentType(ctx, mime)
		if err != nil {
			return nil, fmt.Errorf("list %s rows: %w", mime, err)
		}
		for _, file := range files {
			if !file.IsConverted {
				pending = append(pending, file)
			}
		}
	}
	return pending, nil
}

func jpegFilename(filename string) string {
	base := strings.TrimSuffix(filename, path.Ext(filename))
	return base + ".jpg"
}
