package cryptostore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/jrsteele09/go-auth-session/storage/cryptostore"
	"github.com/jrsteele09/go-auth-session/storage/memstore"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	inner := memstore.New()
	store := cryptostore.New(inner, []byte("correct horse battery staple"))

	plaintext := []byte(`{"access_token":"tok1"}`)
	require.NoError(t, store.Set(ctx, "key", plaintext))

	// the inner store only ever sees ciphertext
	sealed, err := inner.Get(ctx, "key")
	require.NoError(t, err)
	require.NotEqual(t, plaintext, sealed)
	require.NotContains(t, string(sealed), "tok1")

	value, err := store.Get(ctx, "key")
	require.NoError(t, err)
	require.Equal(t, plaintext, value)

	require.NoError(t, store.Delete(ctx, "key"))
	_, err = store.Get(ctx, "key")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStoreWrongPassphrase(t *testing.T) {
	ctx := context.Background()
	inner := memstore.New()

	require.NoError(t, cryptostore.New(inner, []byte("passphrase-one")).Set(ctx, "key", []byte("secret")))

	_, err := cryptostore.New(inner, []byte("passphrase-two")).Get(ctx, "key")
	require.Error(t, err)
}

func TestStoreRejectsTruncatedValue(t *testing.T) {
	ctx := context.Background()
	inner := memstore.New()
	require.NoError(t, inner.Set(ctx, "key", []byte("too short")))

	_, err := cryptostore.New(inner, []byte("passphrase")).Get(ctx, "key")
	require.Error(t, err)
}
