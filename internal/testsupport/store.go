package testsupport

import (
	"context"
	"testing"

	"imgconv/internal/blob"
	"imgconv/internal/config"
	"imgconv/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AddItem inserts file into store with no preview handle.
func AddItem(t testing.TB, store *queue.Store, file blob.File) *queue.Item {
	t.Helper()

	item, err := store.Add(context.Background(), file, "")
	if err != nil {
		t.Fatalf("store.Add: %v", err)
	}
	return item
}
