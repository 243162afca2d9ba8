package filestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-auth-session/storage"
)

var _ storage.Store = (*Store)(nil)

// Store persists keys to a single JSON file. Writes go through a temp file
// and rename so a crash mid-write never leaves a truncated store behind.
type Store struct {
	path string
	lock sync.Mutex
}

func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "[filestore.New] os.MkdirAll")
	}
	return &Store{path: path}, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	items, err := s.load()
	if err != nil {
		return nil, err
	}
	value, ok := items[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return value, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	items, err := s.load()
	if err != nil {
		return err
	}
	items[key] = value
	return s.save(items)
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	items, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := items[key]; !ok {
		return nil
	}
	delete(items, key)
	return s.save(items)
}

func (s *Store) load() (map[string][]byte, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string][]byte{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[filestore.load] os.ReadFile")
	}

	items := map[string][]byte{}
	if len(raw) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.Wrapf(err, "[filestore.load] parsing %s", s.path)
	}
	return items, nil
}

func (s *Store) save(items map[string][]byte) error {
	raw, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[filestore.save] json.Marshal")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return errors.Wrap(err, "[filestore.save] os.WriteFile")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "[filestore.save] os.Rename")
	}
	return nil
}
