package badgerstore

import (
	"testing"

	"github.com/dohr-michael/graphcalc/internal/storage"
	"github.com/dohr-michael/graphcalc/internal/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := Open(t.TempDir())
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		return s
	})
}

func TestInMemory(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := Open("")
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		return s
	})
}
