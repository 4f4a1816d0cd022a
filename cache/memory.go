package cache

import (
	"context"
	"sync"

	"github.com/jonwraymond/toolproxy/invocation"
)

// MemoryStore is an unbounded in-memory Store. Entries live until deleted.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]invocation.Result
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]invocation.Result),
	}
}

// Get retrieves a result from the store.
func (s *MemoryStore) Get(_ context.Context, key string) (invocation.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.entries[key]
	return result, ok
}

// Set stores a result.
func (s *MemoryStore) Set(_ context.Context, key string, result invocation.Result) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	s.entries[key] = result
	s.mu.Unlock()
	return nil
}

// Delete removes a result. Idempotent - no error on miss.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
