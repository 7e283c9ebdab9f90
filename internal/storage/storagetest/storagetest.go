// Package storagetest holds the behavior every storage.Store backend must share.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dohr-michael/graphcalc/internal/storage"
)

// Run exercises a backend. newStore must return an empty store; Run closes it.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		if _, err := s.Get(context.Background(), storage.KindSession, "default"); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("Get error = %v, want ErrNotFound", err)
		}
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()

		for _, v := range []string{`{"v":1}`, `{"v":2}`} {
			if err := s.Put(ctx, storage.KindSession, "default", []byte(v)); err != nil {
				t.Fatalf("Put: %v", err)
			}
		}
		got, err := s.Get(ctx, storage.KindSession, "default")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if string(got) != `{"v":2}` {
			t.Errorf("Get = %s, want last write", got)
		}
	})

	t.Run("KindsAreIsolated", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()

		if err := s.Put(ctx, storage.KindUser, "default", []byte(`{}`)); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if _, err := s.Get(ctx, storage.KindSession, "default"); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("session/default visible through user/default: %v", err)
		}
	})

	t.Run("ListDelete", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()

		for _, key := range []string{"zed", "amy", "max"} {
			if err := s.Put(ctx, storage.KindUser, key, []byte(`{}`)); err != nil {
				t.Fatalf("Put %s: %v", key, err)
			}
		}
		if err := s.Put(ctx, storage.KindSession, "default", []byte(`{}`)); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if err := s.Delete(ctx, storage.KindUser, "max"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		keys, err := s.List(ctx, storage.KindUser)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if fmt.Sprint(keys) != "[amy zed]" {
			t.Errorf("List = %v, want [amy zed]", keys)
		}
	})

	t.Run("InvalidKey", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		if err := s.Put(context.Background(), storage.KindUser, "a/b", []byte(`{}`)); err == nil {
			t.Fatal("Put accepted key with a slash")
		}
	})

	t.Run("ConcurrentWriters", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := s.Put(ctx, storage.KindSession, "default", fmt.Appendf(nil, `{"i":%d}`, i)); err != nil {
					t.Errorf("Put: %v", err)
				}
			}()
		}
		wg.Wait()
		if _, err := s.Get(ctx, storage.KindSession, "default"); err != nil {
			t.Fatalf("Get: %v", err)
		}
	})
}
