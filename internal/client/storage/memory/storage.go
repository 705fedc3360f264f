// Package memory is a process-local storage.KV used by tests and by the
// "memory" backend for throwaway sessions.
package memory

import (
	"context"
	"sync"

	"github.com/iudanet/yardsync/internal/client/storage"
)

// Storage keeps values in a map guarded by a mutex
type Storage struct {
	data     map[string][]byte
	capacity int64
	used     int64
	mu       sync.Mutex
	closed   bool
}

var _ storage.KV = (*Storage)(nil)

// New creates an empty store; capacity <= 0 means storage.DefaultCapacity
func New(capacity int64) *Storage {
	if capacity <= 0 {
		capacity = storage.DefaultCapacity
	}
	return &Storage{data: make(map[string][]byte), capacity: capacity}
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, storage.ErrStorageClosed
	}
	v, ok := s.data[key]
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStorageClosed
	}

	var oldSize int64
	if old, ok := s.data[key]; ok {
		oldSize = int64(len(key) + len(old))
	}
	newSize := int64(len(key) + len(value))
	if storage.ExceedsCapacity(s.capacity, s.used, oldSize, newSize) {
		return storage.ErrQuotaExceeded
	}

	s.data[key] = append([]byte(nil), value...)
	s.used += newSize - oldSize
	return nil
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStorageClosed
	}
	if old, ok := s.data[key]; ok {
		s.used -= int64(len(key) + len(old))
		delete(s.data, key)
	}
	return nil
}

func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Used returns the number of bytes currently stored
func (s *Storage) Used() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used
}
