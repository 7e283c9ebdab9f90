package dirstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dohr-michael/graphcalc/internal/storage"
	"github.com/dohr-michael/graphcalc/internal/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return New(t.TempDir())
	})
}

func TestPutGet(t *testing.T) {
	ds := New(t.TempDir())
	ctx := context.Background()

	want := `{"font_size":18}`
	if err := ds.Put(ctx, storage.KindSession, "default", []byte(want)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := ds.Get(ctx, storage.KindSession, "default")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != want {
		t.Errorf("Get = %q, want %q", got, want)
	}

	// overwrite, no tmp file left behind
	if err := ds.Put(ctx, storage.KindSession, "default", []byte(`{}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := os.Stat(ds.FilePath(storage.KindSession, "default") + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("tmp file still present: %v", err)
	}
}

func TestGetNotFound(t *testing.T) {
	ds := New(t.TempDir())

	_, err := ds.Get(context.Background(), storage.KindUser, "nobody")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Get error = %v, want ErrNotFound", err)
	}
}

func TestRejectsUnsafeKeys(t *testing.T) {
	ds := New(t.TempDir())
	if err := ds.Put(context.Background(), storage.KindUser, "../escape", []byte("{}")); err == nil {
		t.Fatal("Put accepted a path traversal key")
	}
}

func TestListAndDelete(t *testing.T) {
	base := t.TempDir()
	ds := New(base)
	ctx := context.Background()

	for _, key := range []string{"carol", "alice", "bob"} {
		if err := ds.Put(ctx, storage.KindUser, key, []byte("{}")); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}
	// stray files are ignored
	if err := os.WriteFile(filepath.Join(base, storage.KindUser, "notes.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	keys, err := ds.List(ctx, storage.KindUser)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"alice", "bob", "carol"}
	if len(keys) != len(want) {
		t.Fatalf("List = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}

	if err := ds.Delete(ctx, storage.KindUser, "bob"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := ds.Delete(ctx, storage.KindUser, "bob"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
	if _, err := ds.Get(ctx, storage.KindUser, "bob"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get after Delete = %v", err)
	}
}

func TestListNonExistent(t *testing.T) {
	ds := New(filepath.Join(t.TempDir(), "nope"))

	keys, err := ds.List(context.Background(), storage.KindSession)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if keys != nil {
		t.Errorf("expected nil, got %v", keys)
	}
}
