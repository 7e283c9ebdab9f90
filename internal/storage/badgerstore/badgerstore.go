// Package badgerstore keeps records in an embedded BadgerDB directory.
package badgerstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/dohr-michael/graphcalc/internal/storage"
)

// Store implements storage.Store with keys laid out as "<kind>/<key>".
type Store struct {
	db *badger.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens the database in dir. An empty dir opens an in-memory database.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db}, nil
}

func recordKey(kind, key string) []byte {
	return []byte(kind + "/" + key)
}

func (s *Store) Get(_ context.Context, kind, key string) ([]byte, error) {
	if err := storage.ValidateKey(kind, key); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(kind, key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%s %s: %w", kind, key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", kind, err)
	}
	return data, nil
}

func (s *Store) Put(_ context.Context, kind, key string, data []byte) error {
	if err := storage.ValidateKey(kind, key); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(kind, key), data)
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", kind, err)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, kind, key string) error {
	if err := storage.ValidateKey(kind, key); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(recordKey(kind, key))
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	return nil
}

// List iterates keys only; badger returns them in byte order.
func (s *Store) List(_ context.Context, kind string) ([]string, error) {
	prefix := []byte(kind + "/")
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			k := it.Item().Key()
			keys = append(keys, string(bytes.TrimPrefix(k, prefix)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return keys, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
