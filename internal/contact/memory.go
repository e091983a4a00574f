package contact

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps inquiries in a map. Used by tests and local development
// when no database is configured.
type MemoryStore struct {
	mu        sync.RWMutex
	inquiries map[string]Inquiry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{inquiries: make(map[string]Inquiry)}
}

func (m *MemoryStore) Insert(ctx context.Context, in *Inquiry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}
	m.inquiries[in.ID] = *in
	return nil
}

func (m *MemoryStore) List(ctx context.Context) ([]Inquiry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Inquiry, 0, len(m.inquiries))
	for _, in := range m.inquiries {
		out = append(out, in)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (*Inquiry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	in, ok := m.inquiries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &in, nil
}
