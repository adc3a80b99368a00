package backends

import (
	"context"
	"sort"
	"sync"

	"taskfed/internal/registry"
	"taskfed/internal/types"
)

// memoryEntry wraps a stored list with its soft-delete flag
type memoryEntry struct {
	list    *types.TaskList
	deleted bool
}

// MemoryBackend implements Backend with in-process storage.
// Uses sync.RWMutex for thread-safe concurrent access; lists are deep-copied
// in and out so callers never alias store-owned memory.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]*memoryEntry
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		data: make(map[string]*memoryEntry),
	}
}

// Kind identifies the backend implementation
func (m *MemoryBackend) Kind() registry.Kind {
	return registry.KindMemory
}

// Initialize is a no-op for the in-memory backend
func (m *MemoryBackend) Initialize(ctx context.Context) error {
	return nil
}

// HealthCheck always succeeds while the process is alive
func (m *MemoryBackend) HealthCheck(ctx context.Context) error {
	return nil
}

// Load retrieves a list by id; soft-deleted entries read as absent
func (m *MemoryBackend) Load(ctx context.Context, key string) (*types.TaskList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.data[key]
	if !ok || entry.deleted {
		return nil, nil
	}
	return entry.list.Clone(), nil
}

// Save persists a deep copy of the list. Saving over a soft-deleted entry
// revives it.
func (m *MemoryBackend) Save(ctx context.Context, key string, list *types.TaskList) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = &memoryEntry{list: list.Clone()}
	return nil
}

// Delete soft-deletes by default; a permanent delete drops the entry entirely.
// Deleting an absent key is not an error.
func (m *MemoryBackend) Delete(ctx context.Context, key string, permanent bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if permanent {
		delete(m.data, key)
		return nil
	}
	if entry, ok := m.data[key]; ok {
		entry.deleted = true
	}
	return nil
}

// List returns summaries of live entries, ordered by id for determinism
func (m *MemoryBackend) List(ctx context.Context, opts ListOptions) ([]types.ListSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := make([]types.ListSummary, 0, len(m.data))
	for _, entry := range m.data {
		if entry.deleted {
			continue
		}
		s := entry.list.Summary()
		if matchesListOptions(s, opts) {
			summaries = append(summaries, s)
		}
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries, nil
}

// Shutdown clears the store
func (m *MemoryBackend) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string]*memoryEntry)
	return nil
}
