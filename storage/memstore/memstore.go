package memstore

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-auth-session/storage"
)

var _ storage.Store = (*Store)(nil)

// Store is an in-memory storage.Store. Suitable for tests and for contexts
// where tokens should not outlive the process.
type Store struct {
	lock  sync.RWMutex
	items map[string][]byte
}

func New() *Store {
	return &Store{
		items: make(map[string][]byte),
	}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	value, ok := s.items[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.items[key] = stored
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.items, key)
	return nil
}
