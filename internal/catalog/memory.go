package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store guarded by an RWMutex. It backs tests
// and local development without Postgres.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string]*GalleryFile
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string]*GalleryFile)}
}

// Insert adds a row, enforcing originalPath uniqueness like the relational
// store's constraint does.
func (m *MemoryStore) Insert(ctx context.Context, file *GalleryFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.files {
		if existing.OriginalPath == file.OriginalPath {
			return fmt.Errorf("%w: %s", ErrDuplicatePath, file.OriginalPath)
		}
	}
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}
	stored := *file
	m.files[file.ID] = &stored
	return nil
}

// List returns copies of every row ordered by creation time.
func (m *MemoryStore) List(ctx context.Context) ([]GalleryFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]GalleryFile, 0, len(m.files))
	for _, file := range m.files {
		out = append(out, *file)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// GetByID returns a copy of the row or ErrNotFound.
func (m *MemoryStore) GetByID(ctx context.Context, id string) (*GalleryFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	file, ok := m.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *file
	return &copied, nil
}

// GetByOriginalPath returns a copy of the row discovered at path.
func (m *MemoryStore) GetByOriginalPath(ctx context.Context, path string) (*GalleryFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, file := range m.files {
		if file.OriginalPath == path {
			copied := *file
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// ListByContentType returns rows matching the MIME type.
func (m *MemoryStore) ListByContentType(ctx context.Context, mime string) ([]GalleryFile, error) {
	all, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []GalleryFile
	for _, file := range all {
		if file.ContentType == mime {
			out = append(out, file)
		}
	}
	return out, nil
}

// UpdateConverted applies the post-conversion rewrite in one step.
func (m *MemoryStore) UpdateConverted(ctx context.Context, id string, upd ConvertedUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	file, ok := m.files[id]
	if !ok {
		return ErrNotFound
	}
	file.Filename = upd.Filename
	file.ContentType = upd.ContentType
	file.FileSize = upd.FileSize
	file.IsConverted = true
	url := upd.ObjectStorageURL
	file.ObjectStorageURL = &url
	file.LocalPath = upd.LocalPath
	return nil
}

// DeleteByContentType removes unconverted rows with the MIME type.
func (m *MemoryStore) DeleteByContentType(ctx context.Context, mime string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for id, file := range m.files {
		if file.ContentType == mime && !file.IsConverted {
			delete(m.files, id)
			removed++
		}
	}
	return removed, nil
}
