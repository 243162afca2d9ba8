package memstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/jrsteele09/go-auth-session/storage/memstore"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Set(ctx, "key", []byte("value")))
	value, err := store.Get(ctx, "key")
	require.NoError(t, err)
	require.Equal(t, []byte("value"), value)

	require.NoError(t, store.Set(ctx, "key", []byte("replaced")))
	value, err = store.Get(ctx, "key")
	require.NoError(t, err)
	require.Equal(t, []byte("replaced"), value)

	require.NoError(t, store.Delete(ctx, "key"))
	_, err = store.Get(ctx, "key")
	require.ErrorIs(t, err, storage.ErrNotFound)

	// deleting a missing key is not an error
	require.NoError(t, store.Delete(ctx, "key"))
}

func TestStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	original := []byte("value")
	require.NoError(t, store.Set(ctx, "key", original))
	original[0] = 'X'

	value, err := store.Get(ctx, "key")
	require.NoError(t, err)
	require.Equal(t, []byte("value"), value)
}
