package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/onyxenersol/solarsite/internal/catalog"
	"github.com/onyxenersol/solarsite/internal/download"
	"github.com/onyxenersol/solarsite/internal/objectstore/objectstoretest"
)

type stubEngine struct {
	out   []byte
	err   error
	calls int
}

func (e *stubEngine) Convert(data []byte, quality int) ([]byte, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.out, nil
}

func seedHEICRow(t *testing.T, cat catalog.Store, key string) catalog.GalleryFile {
	t.Helper()
	url := "/api/objects/" + key
	file := catalog.GalleryFile{
		ID:               "f-" + key,
		Filename:         "photo.heic",
		OriginalPath:     key,
		FileType:         "image",
		ContentType:      "image/heic",
		FileSize:         "2048",
		ObjectStorageURL: &url,
	}
	require.NoError(t, cat.Insert(context.Background(), &file))
	return file
}

func TestConvertFileHappyPath(t *testing.T) {
	cat := catalog.NewMemoryStore()
	store := objectstoretest.New()
	store.Put("gallery/photo.heic", make([]byte, 2048))
	file := seedHEICRow(t, cat, "gallery/photo.heic")

	engine := &stubEngine{out: []byte("jpeg-bytes")}
	p := NewProcessor(cat, store, download.New(store, 100, zap.NewNop()), engine, 85, zap.NewNop())

	require.NoError(t, p.ConvertFile(context.Background(), file.ID))

	converted, ok := store.Get("gallery/converted/photo_q85.jpg")
	require.True(t, ok, "converted object should be cached")
	assert.Equal(t, []byte("jpeg-bytes"), converted)

	row, err := cat.GetByID(context.Background(), file.ID)
	require.NoError(t, err)
	assert.True(t, row.IsConverted)
	assert.Equal(t, "photo.jpg", row.Filename)
	assert.Equal(t, "image/jpeg", row.ContentType)
	assert.Equal(t, "10", row.FileSize)
	require.NotNil(t, row.ObjectStorageURL)
	assert.Equal(t, "/api/objects/gallery%2Fconverted%2Fphoto_q85.jpg", *row.ObjectStorageURL)
}

func TestConvertFileSkipsConvertedRows(t *testing.T) {
	cat := catalog.NewMemoryStore()
	store := objectstoretest.New()
	file := seedHEICRow(t, cat, "gallery/photo.heic")
	require.NoError(t, cat.UpdateConverted(context.Background(), file.ID, catalog.ConvertedUpdate{
		Filename:    "photo.jpg",
		ContentType: "image/jpeg",
		FileSize:    "10",
	}))

	engine := &stubEngine{out: []byte("jpeg-bytes")}
	p := NewProcessor(cat, store, download.New(store, 100, zap.NewNop()), engine, 85, zap.NewNop())

	require.NoError(t, p.ConvertFile(context.Background(), file.ID))
	assert.Zero(t, engine.calls, "already-converted rows must not be reprocessed")
}

func TestConvertFileDownloadFailure(t *testing.T) {
	cat := catalog.NewMemoryStore()
	store := objectstoretest.New()
	file := seedHEICRow(t, cat, "gallery/missing.heic")

	engine := &stubEngine{out: []byte("jpeg-bytes")}
	p := NewProcessor(cat, store, download.New(store, 100, zap.NewNop()), engine, 85, zap.NewNop())

	err := p.ConvertFile(context.Background(), file.ID)
	require.Error(t, err)
	assert.Zero(t, engine.calls)

	row, getErr := cat.GetByID(context.Background(), file.ID)
	require.NoError(t, getErr)
	assert.False(t, row.IsConverted, "failed conversion must leave the row pending")
}

func TestConvertFileEngineFailure(t *testing.T) {
	cat := catalog.NewMemoryStore()
	store := objectstoretest.New()
	store.Put("gallery/photo.heic", make([]byte, 2048))
	file := seedHEICRow(t, cat, "gallery/photo.heic")

	engine := &stubEngine{err: errors.New("decode failed")}
	p := NewProcessor(cat, store, download.New(store, 100, zap.NewNop()), engine, 85, zap.NewNop())

	err := p.ConvertFile(context.Background(), file.ID)
	require.Error(t, err)

	_, ok := store.Get("gallery/converted/photo_q85.jpg")
	assert.False(t, ok, "nothing should be cached on failure")
}

func TestPendingListsOnlyUnconverted(t *testing.T) {
	cat := catalog.NewMemoryStore()
	store := objectstoretest.New()
	a := seedHEICRow(t, cat, "gallery/a.heic")
	seedHEICRow(t, cat, "gallery/b.heic")
	require.NoError(t, cat.UpdateConverted(context.Background(), a.ID, catalog.ConvertedUpdate{
		Filename:    "a.jpg",
		ContentType: "image/jpeg",
		FileSize:    "10",
	}))

	p := NewProcessor(cat, store, download.New(store, 100, zap.NewNop()), &stubEngine{}, 85, zap.NewNop())

	pending, err := p.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "gallery/b.heic", pending[0].OriginalPath)
}
