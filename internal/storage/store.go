// Package storage defines the durable record store used for session state
// and user profiles, plus the event journal.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ErrNotFound is returned by Get when no record exists for a kind and key.
var ErrNotFound = errors.New("record not found")

// Record kinds.
const (
	KindSession = "session"
	KindUser    = "user"
)

// Store persists opaque JSON documents addressed by (kind, key).
// Put fully overwrites the previous value; the last completed write wins.
type Store interface {
	Get(ctx context.Context, kind, key string) ([]byte, error)
	Put(ctx context.Context, kind, key string, data []byte) error
	Delete(ctx context.Context, kind, key string) error
	// List returns the keys of the given kind in lexical order.
	List(ctx context.Context, kind string) ([]string, error)
	Close() error
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// ValidateKey rejects kinds and keys that are unsafe as file names or
// database keys.
func ValidateKey(kind, key string) error {
	if !keyPattern.MatchString(kind) {
		return fmt.Errorf("invalid record kind %q", kind)
	}
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("invalid record key %q", key)
	}
	return nil
}
