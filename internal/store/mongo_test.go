package store

import (
	"context"
	"os"
	"testing"
)

// newTestStore connects to the Mongo instance named by MONGODB_URI and resets
// the collections under test. Tests using it are skipped when the variable is
// not set.
func newTestStore(t *testing.T) (*Store, context.Context) {
	t.Helper()

	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set; skipping integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, uri)
	if err != nil {
		t.Fatalf("connect store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	for _, name := range []string{"conversations", "messages", "notifications"} {
		if err := s.db.Collection(name).Drop(ctx); err != nil {
			t.Fatalf("drop %s: %v", name, err)
		}
	}
	if err := s.EnsureIndexes(ctx); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}

	return s, ctx
}
