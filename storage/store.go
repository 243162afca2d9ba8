package storage

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by Get when no value exists for the key.
var ErrNotFound = errors.New("storage: key not found")

// Store is a named key-value slot used to persist session tokens across
// process restarts. Writes are last-writer-wins; implementations make no
// transactional guarantee beyond the write completing before Set returns.
type Store interface {
	// Get retrieves the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the value stored under key. Deleting a missing key
	// is not an error.
	Delete(ctx context.Context, key string) error
}
