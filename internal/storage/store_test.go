package storage

import (
	"io"
	"strings"
	"testing"

	"github.com/gramsight/gramsight-backend/internal/logger"
)

func testStore(t *testing.T) BlobStore {
	t.Helper()
	t.Setenv("MEDIA_ROOT", t.TempDir())
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	store, err := NewLocalStore(log)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	return store
}

func TestWriteOpenRoundtrip(t *testing.T) {
	store := testStore(t)
	key := store.BuildKey(".jpg", "users", "someuser")
	payload := []byte("binary payload")

	if store.Exists(key) {
		t.Fatalf("fresh key must not exist")
	}
	if err := store.Write(key, payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !store.Exists(key) {
		t.Fatalf("key must exist after write")
	}

	f, err := store.Open(key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("unexpected content: %q", got)
	}

	if err := store.Delete(key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if store.Exists(key) {
		t.Fatalf("key must not exist after delete")
	}
	if err := store.Delete(key); err != nil {
		t.Fatalf("deleting a missing key must be a no-op, got %v", err)
	}
}

func TestBuildKey_FreshPerCall(t *testing.T) {
	store := testStore(t)
	first := store.BuildKey(".jpg", "posts", "p1")
	second := store.BuildKey(".jpg", "posts", "p1")
	if first == second {
		t.Fatalf("every key must be unique, got %q twice", first)
	}
	if !strings.HasPrefix(first, "posts/p1/") || !strings.HasSuffix(first, ".jpg") {
		t.Fatalf("unexpected key shape: %q", first)
	}
}

func TestEmptyKeyGuards(t *testing.T) {
	store := testStore(t)
	if err := store.Write("", []byte("x")); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if store.Exists("") {
		t.Fatalf("empty key must not exist")
	}
	if _, err := store.Open(""); err == nil {
		t.Fatalf("expected error opening empty key")
	}
}
