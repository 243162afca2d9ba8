package cryptostore

import (
	"context"
	"crypto/rand"

	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"

	"github.com/jrsteele09/go-auth-session/storage"
)

const (
	saltLength  = 16
	nonceLength = 24
	keyLength   = 32

	// scrypt cost parameters. N must stay a power of two.
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

var _ storage.Store = (*Store)(nil)

// Store wraps another storage.Store and encrypts every value at rest with a
// passphrase-derived key. Stored layout: salt | nonce | sealed box. A fresh
// salt and nonce are drawn per write.
type Store struct {
	inner      storage.Store
	passphrase []byte
}

func New(inner storage.Store, passphrase []byte) *Store {
	return &Store{inner: inner, passphrase: passphrase}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < saltLength+nonceLength+secretbox.Overhead {
		return nil, errors.New("[cryptostore.Get] stored value too short")
	}

	boxKey, err := s.deriveKey(sealed[:saltLength])
	if err != nil {
		return nil, err
	}

	var nonce [nonceLength]byte
	copy(nonce[:], sealed[saltLength:saltLength+nonceLength])

	value, ok := secretbox.Open(nil, sealed[saltLength+nonceLength:], &nonce, boxKey)
	if !ok {
		return nil, errors.New("[cryptostore.Get] decryption failed")
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return errors.Wrap(err, "[cryptostore.Set] rand.Read salt")
	}

	boxKey, err := s.deriveKey(salt)
	if err != nil {
		return err
	}

	var nonce [nonceLength]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return errors.Wrap(err, "[cryptostore.Set] rand.Read nonce")
	}

	sealed := make([]byte, 0, saltLength+nonceLength+len(value)+secretbox.Overhead)
	sealed = append(sealed, salt...)
	sealed = append(sealed, nonce[:]...)
	sealed = secretbox.Seal(sealed, value, &nonce, boxKey)

	return s.inner.Set(ctx, key, sealed)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

func (s *Store) deriveKey(salt []byte) (*[keyLength]byte, error) {
	derived, err := scrypt.Key(s.passphrase, salt, scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, errors.Wrap(err, "[cryptostore.deriveKey] scrypt.Key")
	}
	var boxKey [keyLength]byte
	copy(boxKey[:], derived)
	return &boxKey, nil
}
