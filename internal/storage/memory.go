package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is a process-lifetime Store. A positive quota bounds the total
// size of stored values.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]string
	quota   int
}

func NewMemoryStore(quota int) *MemoryStore {
	return &MemoryStore{entries: make(map[string]string), quota: quota}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quota > 0 {
		used := len(value)
		for k, v := range s.entries {
			if k != key {
				used += len(v)
			}
		}
		if used > s.quota {
			return fmt.Errorf("set key %q: %w", key, ErrQuotaExceeded)
		}
	}
	s.entries[key] = value
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
