// Package dirstore is the file-backed record store: one JSON document per
// record under <base>/<kind>/<key>.json, written with tmp + rename.
package dirstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dohr-michael/graphcalc/internal/storage"
)

const ext = ".json"

// DirStore implements storage.Store on a directory tree.
type DirStore struct {
	mu      sync.RWMutex
	baseDir string
}

var _ storage.Store = (*DirStore)(nil)

// New creates a DirStore rooted at baseDir. The directory is created lazily.
func New(baseDir string) *DirStore {
	return &DirStore{baseDir: baseDir}
}

// Dir returns the directory holding records of a kind.
func (ds *DirStore) Dir(kind string) string {
	return filepath.Join(ds.baseDir, kind)
}

// FilePath returns the path of one record.
func (ds *DirStore) FilePath(kind, key string) string {
	return filepath.Join(ds.baseDir, kind, key+ext)
}

// Get reads a record. A missing file maps to storage.ErrNotFound.
func (ds *DirStore) Get(_ context.Context, kind, key string) ([]byte, error) {
	if err := storage.ValidateKey(kind, key); err != nil {
		return nil, err
	}
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	data, err := os.ReadFile(ds.FilePath(kind, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s %s: %w", kind, key, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", kind, err)
	}
	return data, nil
}

// Put atomically replaces a record using a temp file + rename.
func (ds *DirStore) Put(_ context.Context, kind, key string, data []byte) error {
	if err := storage.ValidateKey(kind, key); err != nil {
		return err
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if err := os.MkdirAll(ds.Dir(kind), 0o755); err != nil {
		return fmt.Errorf("create %s dir: %w", kind, err)
	}

	path := ds.FilePath(kind, key)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s tmp: %w", kind, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", kind, err)
	}
	return nil
}

// Delete removes a record. Deleting a missing record is not an error.
func (ds *DirStore) Delete(_ context.Context, kind, key string) error {
	if err := storage.ValidateKey(kind, key); err != nil {
		return err
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if err := os.Remove(ds.FilePath(kind, key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	return nil
}

// List returns the keys of all records of a kind.
func (ds *DirStore) List(_ context.Context, kind string) ([]string, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	entries, err := os.ReadDir(ds.Dir(kind))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %ss dir: %w", kind, err)
	}

	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ext) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ext))
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op; files are closed after every operation.
func (ds *DirStore) Close() error { return nil }
