package testsupport

import (
	"context"
	"testing"

	"hlsingest/internal/catalog"
	"hlsingest/internal/config"
)

// MustOpenCatalog opens the SQLite catalog for cfg and registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.SQLiteStore {
	t.Helper()

	store, err := catalog.OpenSQLite(cfg.Paths.CatalogPath)
	if err != nil {
		t.Fatalf("catalog.OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// Enqueue adds items for urls to store.
func Enqueue(t testing.TB, store catalog.Store, urls ...string) {
	t.Helper()

	items := make([]catalog.WorkItem, 0, len(urls))
	for _, url := range urls {
		items = append(items, catalog.WorkItem{SourceURL: url})
	}
	if _, err := store.Enqueue(context.Background(), items); err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
}
