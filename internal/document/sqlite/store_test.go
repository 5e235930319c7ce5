package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/umbral/internal/document"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "umbral.db"))
	if err := s.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	path := "users/u1/habits/h1"

	if _, err := s.Get(path); err != document.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Set(path, []byte(`{"name":"Leer"}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	data, err := s.Get(path)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(data) != `{"name":"Leer"}` {
		t.Errorf("unexpected data: %s", data)
	}

	// Set is an upsert.
	if err := s.Set(path, []byte(`{"name":"Leer más"}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	data, _ = s.Get(path)
	if !strings.Contains(string(data), "Leer más") {
		t.Errorf("upsert did not replace data: %s", data)
	}

	if err := s.Delete(path); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(path); err != nil {
		t.Errorf("delete of missing doc should be a no-op, got %v", err)
	}
}

func TestStoreListByCollection(t *testing.T) {
	s := newTestStore(t)
	_ = s.Set("users/u1/habits/h1", []byte(`{}`))
	_ = s.Set("users/u1/habits/h2", []byte(`{}`))
	_ = s.Set("users/u1/habitCompletions/h1-2024-05-01", []byte(`{}`))

	docs, err := s.List("users/u1/habits")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
}

func TestStoreApplyIsAtomic(t *testing.T) {
	s := newTestStore(t)
	_ = s.Set("users/u1/habits/h1", []byte(`{"name":"old"}`))

	var b document.Batch
	b = b.Put("users/u1/habits/h1", []byte(`{"name":"new"}`))
	b = b.Put("users/u1/meta/seeded", []byte(`{"seeded_at":"2024-05-01T00:00:00Z"}`))

	if err := s.Apply(b); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := s.Get("users/u1/meta/seeded"); err != nil {
		t.Errorf("marker not written: %v", err)
	}
	data, _ := s.Get("users/u1/habits/h1")
	if !strings.Contains(string(data), "new") {
		t.Errorf("h1 not updated: %s", data)
	}
}

func TestStoreWatchNotifiesPerCollection(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Watch(ctx)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	if err := s.Set("users/u1/habits/h1", []byte(`{}`)); err != nil {
		t.Fatalf("set: %v", err)
	}

	select {
	case evt := <-ch:
		if evt.Collection != "users/u1/habits" {
			t.Errorf("unexpected collection %q", evt.Collection)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change event")
	}
}
