// Package objectstoretest provides an in-memory Store for tests, with hooks
// for simulating the transport failures the downloader defends against.
package objectstoretest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/onyxenersol/solarsite/internal/objectstore"
)

// Fake is an in-memory objectstore.Store. The zero value is not usable; call
// New.
type Fake struct {
	mu      sync.Mutex
	objects map[string][]byte
	created map[string]time.Time

	// BytesOverride, when set, replaces the byte-array download path so a
	// test can return truncated payloads or errors.
	BytesOverride func(key string) ([]byte, error)
	// StreamErr forces the streaming download path to fail.
	StreamErr error
	// ListErr forces List to fail.
	ListErr error
	// UploadErr forces Upload to fail.
	UploadErr error

	// Uploads counts successful Upload calls per key.
	Uploads map[string]int
}

var _ objectstore.Store = (*Fake)(nil)

// New returns an empty fake store.
func New() *Fake {
	return &Fake{
		objects: make(map[string][]byte),
		created: make(map[string]time.Time),
		Uploads: make(map[string]int),
	}
}

// Put seeds an object without going through Upload.
func (f *Fake) Put(key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	f.created[key] = time.Now().UTC()
}

// Get returns a seeded or uploaded object.
func (f *Fake) Get(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	return data, ok
}

func (f *Fake) List(ctx context.Context) ([]objectstore.ObjectInfo, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []objectstore.ObjectInfo
	for key, data := range f.objects {
		out = append(out, objectstore.ObjectInfo{Key: key, Size: int64(len(data)), Created: f.created[key]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (f *Fake) DownloadBytes(ctx context.Context, key string) ([]byte, error) {
	if f.BytesOverride != nil {
		return f.BytesOverride(key)
	}
	data, ok := f.Get(key)
	if !ok {
		return nil, fmt.Errorf("get object %s: not found", key)
	}
	return data, nil
}

func (f *Fake) DownloadStream(ctx context.Context, key string) (io.ReadCloser, error) {
	if f.StreamErr != nil {
		return nil, f.StreamErr
	}
	data, ok := f.Get(key)
	if !ok {
		return nil, fmt.Errorf("open object stream %s: not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *Fake) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if f.UploadErr != nil {
		return f.UploadErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	f.created[key] = time.Now().UTC()
	f.Uploads[key]++
	return nil
}

func (f *Fake) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	delete(f.created, key)
	return nil
}

func (f *Fake) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := f.Get(key)
	return ok, nil
}
