package cache

import (
	"sync"
	"time"

	"github.com/justestif/go-spotify-shuffler/internal/library"
)

// Store holds one batch per key.
type Store interface {
	Get(key string) (library.Batch, bool)
	Put(key string, batch library.Batch)
	Delete(key string)

	// Prune deletes batches fetched at or before cutoff and reports how many.
	Prune(cutoff time.Time) int
}

// MemoryStore is a Store backed by a map.
type MemoryStore struct {
	mu      sync.RWMutex
	batches map[string]library.Batch
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{batches: make(map[string]library.Batch)}
}

// Get returns the batch stored under key.
func (s *MemoryStore) Get(key string) (library.Batch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.batches[key]
	return b, ok
}

// Put replaces the batch stored under key.
func (s *MemoryStore) Put(key string, batch library.Batch) {
	s.mu.Lock()
	s.batches[key] = batch
	s.mu.Unlock()
}

// Delete removes the batch stored under key.
func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	delete(s.batches, key)
	s.mu.Unlock()
}

// Prune deletes batches fetched at or before cutoff.
func (s *MemoryStore) Prune(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, b := range s.batches {
		if !b.FetchedAt.After(cutoff) {
			delete(s.batches, key)
			n++
		}
	}
	return n
}

// Len returns the number of stored batches.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.batches)
}

var _ Store = (*MemoryStore)(nil)
