package secrets

import (
	"context"
	"fmt"
	"slices"

	"filippo.io/age"

	"github.com/dohr-michael/graphcalc/internal/storage"
)

// SealedStore encrypts the records of selected kinds before handing them to
// the wrapped store. Plaintext records written before encryption was turned
// on are still readable and get sealed on their next write.
type SealedStore struct {
	storage.Store
	identity *age.X25519Identity
	kinds    []string
}

var _ storage.Store = (*SealedStore)(nil)

// Seal wraps inner so that records of the given kinds are stored encrypted.
func Seal(inner storage.Store, identity *age.X25519Identity, kinds ...string) *SealedStore {
	return &SealedStore{Store: inner, identity: identity, kinds: kinds}
}

func (s *SealedStore) sealed(kind string) bool {
	return slices.Contains(s.kinds, kind)
}

func (s *SealedStore) Get(ctx context.Context, kind, key string) ([]byte, error) {
	data, err := s.Store.Get(ctx, kind, key)
	if err != nil || !s.sealed(kind) || !IsEncrypted(data) {
		return data, err
	}
	plain, err := Decrypt(data, s.identity)
	if err != nil {
		return nil, fmt.Errorf("unseal %s %s: %w", kind, key, err)
	}
	return plain, nil
}

func (s *SealedStore) Put(ctx context.Context, kind, key string, data []byte) error {
	if !s.sealed(kind) {
		return s.Store.Put(ctx, kind, key, data)
	}
	blob, err := Encrypt(data, s.identity.Recipient())
	if err != nil {
		return fmt.Errorf("seal %s %s: %w", kind, key, err)
	}
	return s.Store.Put(ctx, kind, key, blob)
}
