// Package reconcile brings the catalog into agreement with the blob store:
// Sync inserts rows for newly discovered objects and Audit verifies that
// every cataloged artifact is still reachable.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/onyxenersol/solarsite/internal/catalog"
	"github.com/onyxenersol/solarsite/internal/contenttype"
	"github.com/onyxenersol/solarsite/internal/download"
	"github.com/onyxenersol/solarsite/internal/objectstore"
)

// objectURLPrefix is the API path catalog rows are served under.
const objectURLPrefix = "/api/objects/"

// SyncResult reports one reconciliation pass. Errors holds per-object
// failures that did not abort the batch.
type SyncResult struct {
	Synced int
	Errors []string
}

// AuditResult tallies the accessibility audit. The audit is read-only; it
// never mutates the catalog.
type AuditResult struct {
	Accessible   int
	Inaccessible int
	Problems     []string
}

// Syncer reconciles blob-store contents against the catalog.
type Syncer struct {
	store      objectstore.Store
	catalog    catalog.Store
	downloader *download.Downloader
	localDir   string
	logger     *zap.Logger
}

// NewSyncer constructs a Syncer. localDir is the filesystem root for rows
// that were materialized locally instead of left in the blob store.
func NewSyncer(store objectstore.Store, cat catalog.Store, dl *download.Downloader, localDir string, logger *zap.Logger) *Syncer {
	return &Syncer{
		store:      store,
		catalog:    cat,
		downloader: dl,
		localDir:   localDir,
		logger:     logger.With(zap.String("component", "reconcile")),
	}
}

// Sync lists every object in the blob store and inserts catalog rows for the
// ones not yet known. Directory markers and unrecognized extensions are
// skipped; per-object insert failures are collected and the batch continues.
// Re-running against an unchanged store syncs nothing.
func (s *Syncer) Sync(ctx context.Context) (SyncResult, error) {
	objects, err := s.store.List(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("list objects: %w", err)
	}

	var result SyncResult
	for _, obj := range objects {
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		filename := path.Base(obj.Key)
		fileType := contenttype.Classify(filename)
		if fileType == contenttype.TypeUnknown {
			s.logger.Info("skipping unknown file type", zap.String("key", obj.Key))
			continue
		}

		_, err := s.catalog.GetByOriginalPath(ctx, obj.Key)
		if err == nil {
			continue // already cataloged, idempotent re-run
		}
		if !errors.Is(err, catalog.ErrNotFound) {
			result.Errors = append(result.Errors, fmt.Sprintf("lookup %s: %v", obj.Key, err))
			continue
		}

		storageURL := objectURLPrefix + url.PathEscape(obj.Key)
		row := &catalog.GalleryFile{
			Filename:         filename,
			OriginalPath:     obj.Key,
			FileType:         fileType,
			ContentType:      contenttype.Resolve(filename),
			FileSize:         strconv.FormatInt(obj.Size, 10),
			IsConverted:      !contenttype.IsHEIC(filename),
			ObjectStorageURL: &storageURL,
		}
		if err := s.catalog.Insert(ctx, row); err != nil {
			if errors.Is(err, catalog.ErrDuplicatePath) {
				// Lost a race with a concurrent sync; the row exists, which
				// is all we wanted.
				continue
			}
			result.Errors = append(result.Errors, fmt.Sprintf("sync %s: %v", obj.Key, err))
			continue
		}
		s.logger.Info("cataloged object",
			zap.String("key", obj.Key),
			zap.String("file_type", string(fileType)),
		)
		result.Synced++
	}
	return result, nil
}

// ClearStale removes unconverted HEIC/HEIF rows ahead of a re-sync, so rows
// pointing at objects that were re-uploaded get rebuilt from scratch.
func (s *Syncer) ClearStale(ctx context.Context) (int64, error) {
	var total int64
	for _, mime := range []string{"image/heic", "image/heif"} {
		removed, err := s.catalog.DeleteByContentType(ctx, mime)
		if err != nil {
			return total, fmt.Errorf("clear stale %s rows: %w", mime, err)
		}
		total += removed
	}
	return total, nil
}

// Audit resolves every catalog row's bytes: local copies are checked on
// disk, everything else goes through the resilient downloader and must meet
// the size floor.
func (s *Syncer) Audit(ctx context.Context) (AuditResult, error) {
	files, err := s.catalog.List(ctx)
	if err != nil {
		return AuditResult{}, fmt.Errorf("list catalog: %w", err)
	}

	var result AuditResult
	for _, file := range files {
		if err := s.resolve(ctx, file); err != nil {
			s.logger.Warn("inaccessible catalog entry",
				zap.String("filename", file.Filename),
				zap.Error(err),
			)
			result.Problems = append(result.Problems, fmt.Sprintf("%s: %v", file.Filename, err))
			result.Inaccessible++
			continue
		}
		result.Accessible++
	}
	return result, nil
}

func (s *Syncer) resolve(ctx context.Context, file catalog.GalleryFile) error {
	if file.LocalPath != nil {
		if _, err := os.Stat(*file.LocalPath); err != nil {
			return fmt.Errorf("local copy: %w", err)
		}
		return nil
	}
	if file.ObjectStorageURL != nil && strings.HasPrefix(*file.ObjectStorageURL, "/gallery/") {
		local := filepath.Join(s.localDir, filepath.FromSlash(*file.ObjectStorageURL))
		if _, err := os.Stat(local); err != nil {
			return fmt.Errorf("local copy: %w", err)
		}
		return nil
	}
	if _, err := s.downloader.Download(ctx, file.OriginalPath); err != nil {
		return err
	}
	return nil
}
