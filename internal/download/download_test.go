package download

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/onyxenersol/solarsite/internal/objectstore/objectstoretest"
)

func payload(n int) []byte {
	return bytes.Repeat([]byte{0xAB}, n)
}

func TestDownloadPrimarySucceeds(t *testing.T) {
	store := objectstoretest.New()
	store.Put("gallery/photo1.heic", payload(2048))

	d := New(store, 100, zap.NewNop())
	data, err := d.Download(context.Background(), "gallery/photo1.heic")
	require.NoError(t, err)
	assert.Len(t, data, 2048)
}

func TestDownloadFallsBackOnTruncatedPrimary(t *testing.T) {
	store := objectstoretest.New()
	store.Put("gallery/photo1.heic", payload(2048))
	// Primary path reports success but returns a near-empty payload, the
	// failure shape observed in production.
	store.BytesOverride = func(key string) ([]byte, error) {
		return payload(1), nil
	}

	d := New(store, 100, zap.NewNop())
	data, err := d.Download(context.Background(), "gallery/photo1.heic")
	require.NoError(t, err)
	assert.Len(t, data, 2048, "stream fallback should return the full object")
}

func TestDownloadFallsBackOnPrimaryError(t *testing.T) {
	store := objectstoretest.New()
	store.Put("gallery/photo1.heic", payload(500))
	store.BytesOverride = func(key string) ([]byte, error) {
		return nil, errors.New("connection reset")
	}

	d := New(store, 100, zap.NewNop())
	data, err := d.Download(context.Background(), "gallery/photo1.heic")
	require.NoError(t, err)
	assert.Len(t, data, 500)
}

func TestDownloadFailsWhenBothStrategiesDegrade(t *testing.T) {
	store := objectstoretest.New()
	store.Put("gallery/broken.heic", payload(1))
	store.StreamErr = errors.New("stream unavailable")

	d := New(store, 100, zap.NewNop())
	_, err := d.Download(context.Background(), "gallery/broken.heic")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDownloadFailsOnMissingObject(t *testing.T) {
	store := objectstoretest.New()

	d := New(store, 100, zap.NewNop())
	_, err := d.Download(context.Background(), "gallery/missing.jpg")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDownloadHonorsConfiguredFloor(t *testing.T) {
	store := objectstoretest.New()
	store.Put("tiny.gif", payload(40))

	// A floor of 10 accepts the object that the default floor would reject.
	d := New(store, 10, zap.NewNop())
	data, err := d.Download(context.Background(), "tiny.gif")
	require.NoError(t, err)
	assert.Len(t, data, 40)

	strict := New(store, 100, zap.NewNop())
	_, err = strict.Download(context.Background(), "tiny.gif")
	assert.ErrorIs(t, err, ErrUnavailable)
}
