package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dohr-michael/graphcalc/internal/storage"
	"github.com/dohr-michael/graphcalc/internal/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := Open(context.Background(), filepath.Join(t.TempDir(), "records.db"))
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		return s
	})
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Put(ctx, storage.KindUser, "ada", []byte(`{"variables":{"a":1}}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Get(ctx, storage.KindUser, "ada")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"variables":{"a":1}}` {
		t.Errorf("Get = %s", got)
	}
}
