// Package convert materializes web-displayable JPEGs for HEIC gallery
// objects, caching conversion output back into the blob store so each
// original is converted at most once per quality setting.
package convert

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/onyxenersol/solarsite/internal/contenttype"
	"github.com/onyxenersol/solarsite/internal/download"
	"github.com/onyxenersol/solarsite/internal/heic"
	"github.com/onyxenersol/solarsite/internal/objectstore"
)

// ErrNotFound is returned when the original object cannot be fetched.
// Distinct from heic.ErrConversion, which means the bytes arrived but could
// not be transcoded.
var ErrNotFound = errors.New("original object not found")

// Engine converts a HEIC buffer to JPEG bytes. heic.Converter is the
// production implementation; tests substitute call-counting spies.
type Engine interface {
	Convert(data []byte, quality int) ([]byte, error)
}

// CacheKey derives the blob-store key a converted object is cached under.
// The scheme encodes quality, so distinct qualities cache independently:
//
//	{dir}/converted/{baseName}_q{quality}.jpg
//
// It must stay bit-exact across releases or every cached conversion is
// orphaned.
func CacheKey(originalKey string, quality int) string {
	var dir string
	if i := strings.LastIndex(originalKey, "/"); i >= 0 {
		dir = originalKey[:i]
	}
	base := path.Base(originalKey)
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "/" || base == "." {
		base = "image"
	}
	return fmt.Sprintf("%s/converted/%s_q%d.jpg", dir, base, quality)
}

// Service serves displayable bytes for gallery objects, converting and
// caching HEIC originals on first request.
type Service struct {
	store      objectstore.Store
	downloader *download.Downloader
	engine     Engine
	quality    int
	logger     *zap.Logger
}

// NewService wires the serving pipeline. quality outside (0,100] falls back
// to the engine default.
func NewService(store objectstore.Store, dl *download.Downloader, engine Engine, quality int, logger *zap.Logger) *Service {
	if quality <= 0 || quality > 100 {
		quality = heic.DefaultQuality
	}
	return &Service{
		store:      store,
		downloader: dl,
		engine:     engine,
		quality:    quality,
		logger:     logger.With(zap.String("component", "convert")),
	}
}

// Serve returns the displayable bytes and content type for an object key.
// HEIC/HEIF keys go through the conversion cache; everything else is passed
// through with its resolved content type.
func (s *Service) Serve(ctx context.Context, key string) ([]byte, string, error) {
	mime := contenttype.Resolve(key)
	if !contenttype.IsHEICMIME(mime) {
		data, err := s.downloader.Download(ctx, key)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return data, mime, nil
	}
	data, err := s.ServeConverted(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return data, "image/jpeg", nil
}

// ServeConverted implements the HEIC display protocol: cache probe, cached
// serve, otherwise download + convert + best-effort cache store.
func (s *Service) ServeConverted(ctx context.Context, key string) ([]byte, error) {
	cacheKey := CacheKey(key, s.quality)

	if exists, _ := s.store.Exists(ctx, cacheKey); exists {
		data, err := s.downloader.Download(ctx, cacheKey)
		if err == nil {
			s.logger.Debug("served converted object from cache",
				zap.String("key", key),
				zap.String("cache_key", cacheKey),
				zap.Int("bytes", len(data)),
			)
			return data, nil
		}
		// Cached copy unreadable; fall through and convert again.
		s.logger.Warn("cached conversion unreadable, reconverting",
			zap.String("cache_key", cacheKey),
			zap.Error(err),
		)
	}

	original, err := s.downloader.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	jpeg, err := s.engine.Convert(original, s.quality)
	if err != nil {
		return nil, err
	}

	// Cache store is best-effort: a failure here never blocks serving the
	// freshly converted bytes.
	if err := s.store.Upload(ctx, cacheKey, jpeg, "image/jpeg"); err != nil {
		s.logger.Warn("failed to cache converted object",
			zap.String("cache_key", cacheKey),
			zap.Error(err),
		)
	} else {
		s.logger.Info("cached converted object",
			zap.String("key", key),
			zap.String("cache_key", cacheKey),
			zap.Int("bytes", len(jpeg)),
		)
	}
	return jpeg, nil
}

// ServeRaw returns an object's bytes unconverted, with the content type
// resolved from its extension.
func (s *Service) ServeRaw(ctx context.Context, key string) ([]byte, string, error) {
	data, err := s.downloader.Download(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return data, contenttype.Resolve(key), nil
}

// Quality exposes the configured JPEG quality, used by the worker to keep
// batch conversions and on-demand conversions on the same cache keys.
func (s *Service) Quality() int {
	return s.quality
}
