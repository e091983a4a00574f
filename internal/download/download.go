// Package download fetches objects from the blob store with a fallback
// between transfer strategies. The store has been observed to truncate
// byte-array downloads of certain large objects to near-zero payloads, so a
// result under the configured floor is treated as a transport glitch and the
// structurally different streaming path is tried before giving up.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/onyxenersol/solarsite/internal/objectstore"
)

// ErrUnavailable is returned when every strategy failed or produced an
// implausibly small result. Callers treat it as "object not found".
var ErrUnavailable = errors.New("object unavailable")

// strategy is one way of pulling an object's bytes out of the store.
type strategy struct {
	name string
	fn   func(ctx context.Context, key string) ([]byte, error)
}

// Downloader tries strategies in order until one yields a plausible result.
type Downloader struct {
	minBytes   int
	strategies []strategy
	logger     *zap.Logger
}

// New builds a Downloader over the shared store handle. minBytes is the
// success floor: smaller results are rejected as truncated.
func New(store objectstore.Store, minBytes int, logger *zap.Logger) *Downloader {
	d := &Downloader{
		minBytes: minBytes,
		logger:   logger.With(zap.String("component", "downloader")),
	}
	d.strategies = []strategy{
		{name: "bytes", fn: store.DownloadBytes},
		{name: "stream", fn: func(ctx context.Context, key string) ([]byte, error) {
			return readStream(ctx, store, key)
		}},
	}
	return d
}

// Download returns the object's bytes or ErrUnavailable (wrapped with the
// per-strategy diagnostics) when no strategy produced at least minBytes.
func (d *Downloader) Download(ctx context.Context, key string) ([]byte, error) {
	var attempts []string
	for _, s := range d.strategies {
		data, err := s.fn(ctx, key)
		if err != nil {
			d.logger.Warn("download strategy failed",
				zap.String("key", key),
				zap.String("strategy", s.name),
				zap.Error(err),
			)
			attempts = append(attempts, fmt.Sprintf("%s: %v", s.name, err))
			continue
		}
		if len(data) < d.minBytes {
			d.logger.Warn("download result below size floor",
				zap.String("key", key),
				zap.String("strategy", s.name),
				zap.Int("bytes", len(data)),
				zap.Int("floor", d.minBytes),
			)
			attempts = append(attempts, fmt.Sprintf("%s: %d bytes (floor %d)", s.name, len(data), d.minBytes))
			continue
		}
		d.logger.Debug("download succeeded",
			zap.String("key", key),
			zap.String("strategy", s.name),
			zap.Int("bytes", len(data)),
		)
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s: all strategies failed (%v)", ErrUnavailable, key, attempts)
}

// readStream drains the streaming download in chunks and concatenates them,
// mirroring how the bytes path is retried when it truncates.
func readStream(ctx context.Context, store objectstore.Store, key string) ([]byte, error) {
	rc, err := store.DownloadStream(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var data []byte
	buf := make([]byte, 32*1024)
	for {
		n, readErr := rc.Read(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read stream %s: %w", key, readErr)
		}
	}
	return data, nil
}
