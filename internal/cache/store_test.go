package cache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStorePutAndGet(t *testing.T) {
	store := newTestStore(t)
	locator := Locator{Group: "mirror.example.com", Name: "sunlust.wad"}

	modTime := time.Now().Add(-time.Hour).UTC()
	payload := []byte("PWAD payload")
	if _, err := store.Put(context.Background(), locator, bytes.NewReader(payload), PutOptions{ModTime: modTime}); err != nil {
		t.Fatalf("put error: %v", err)
	}

	result, err := store.Get(context.Background(), locator)
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	defer result.Reader.Close()

	body, err := io.ReadAll(result.Reader)
	if err != nil {
		t.Fatalf("read stored body error: %v", err)
	}
	if string(body) != string(payload) {
		t.Fatalf("stored payload mismatch: %s", string(body))
	}
	if result.Entry.SizeBytes != int64(len(payload)) {
		t.Fatalf("size mismatch: %d", result.Entry.SizeBytes)
	}
	if !result.Entry.ModTime.Equal(modTime) {
		t.Fatalf("modtime mismatch: expected %v got %v", modTime, result.Entry.ModTime)
	}
	if filepath.Base(result.Entry.FilePath) != "sunlust.wad" {
		t.Fatalf("unexpected file path %s", result.Entry.FilePath)
	}
}

func TestStoreStatReturnsLocalPath(t *testing.T) {
	store := newTestStore(t)
	locator := Locator{Group: "mirror", Name: "doom2.wad"}
	if _, err := store.Put(context.Background(), locator, bytes.NewReader([]byte("IWAD")), PutOptions{}); err != nil {
		t.Fatalf("put error: %v", err)
	}

	entry, err := store.Stat(context.Background(), locator)
	if err != nil {
		t.Fatalf("stat error: %v", err)
	}
	data, err := os.ReadFile(entry.FilePath)
	if err != nil {
		t.Fatalf("local path should be readable: %v", err)
	}
	if string(data) != "IWAD" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestStoreGetMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), Locator{Group: "mirror", Name: "missing.wad"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreRemove(t *testing.T) {
	store := newTestStore(t)
	locator := Locator{Group: "mirror", Name: "remove.wad"}
	if _, err := store.Put(context.Background(), locator, bytes.NewReader([]byte("data")), PutOptions{}); err != nil {
		t.Fatalf("put error: %v", err)
	}
	if err := store.Remove(context.Background(), locator); err != nil {
		t.Fatalf("remove error: %v", err)
	}
	if _, err := store.Get(context.Background(), locator); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after remove, got %v", err)
	}
}

func TestStoreIgnoresDirectories(t *testing.T) {
	store := newTestStore(t)
	locator := Locator{Group: "mirror", Name: "maps"}

	fs, ok := store.(*fileStore)
	if !ok {
		t.Fatalf("unexpected store type %T", store)
	}

	filePath, err := fs.entryPath(locator)
	if err != nil {
		t.Fatalf("path error: %v", err)
	}
	if err := os.MkdirAll(filePath, 0o755); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}

	if _, err := store.Get(context.Background(), locator); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for directory, got %v", err)
	}
}

func TestStoreRejectsEscapingNames(t *testing.T) {
	store := newTestStore(t)
	for _, locator := range []Locator{
		{Group: "mirror", Name: "../evil.wad"},
		{Group: "mirror", Name: ".."},
		{Group: "../up", Name: "x.wad"},
		{Group: "", Name: "x.wad"},
		{Group: "mirror", Name: ""},
	} {
		if _, err := store.Put(context.Background(), locator, bytes.NewReader(nil), PutOptions{}); err == nil {
			t.Fatalf("expected error for %+v", locator)
		}
	}
}

func TestStorePutEnforcesMaxBytes(t *testing.T) {
	store := newTestStore(t)
	locator := Locator{Group: "mirror", Name: "big.wad"}

	_, err := store.Put(context.Background(), locator, bytes.NewReader(make([]byte, 11)), PutOptions{MaxBytes: 10})
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if _, err := store.Stat(context.Background(), locator); !errors.Is(err, ErrNotFound) {
		t.Fatalf("oversized body must not be kept, got %v", err)
	}

	if _, err := store.Put(context.Background(), locator, bytes.NewReader(make([]byte, 10)), PutOptions{MaxBytes: 10}); err != nil {
		t.Fatalf("body at the limit should be stored: %v", err)
	}
}

func TestStorePutHonoursCancellation(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	locator := Locator{Group: "mirror", Name: "cancel.wad"}
	if _, err := store.Put(ctx, locator, bytes.NewReader([]byte("data")), PutOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	dir := filepath.Join(store.(*fileStore).basePath, "mirror")
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("temp files should be cleaned up, found %d", len(entries))
	}
}

// newTestStore returns a Store backed by a temporary directory.
func newTestStore(t *testing.T) Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}
