package storage_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jo-hoe/imagevault/internal/storage"
)

func TestLocalBackendRoundTrip(t *testing.T) {
	backend, err := storage.NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}

	id := "test-image"
	data := []byte("not really pixels, but bytes are bytes")

	if err := backend.Put(id, data); err != nil {
		t.Fatalf("failed to store blob: %v", err)
	}

	exists, err := backend.Exists(id)
	if err != nil {
		t.Fatalf("failed to check existence: %v", err)
	}
	if !exists {
		t.Fatal("blob should exist after Put")
	}

	got, err := backend.Get(id)
	if err != nil {
		t.Fatalf("failed to read blob: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("read bytes differ from written bytes")
	}

	if err := backend.Delete(id); err != nil {
		t.Fatalf("failed to delete blob: %v", err)
	}

	exists, err = backend.Exists(id)
	if err != nil {
		t.Fatalf("failed to check existence after delete: %v", err)
	}
	if exists {
		t.Fatal("blob should not exist after Delete")
	}
}

func TestLocalBackendGetMissing(t *testing.T) {
	backend, err := storage.NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}

	_, err = backend.Get("missing")
	if !errors.Is(err, storage.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestLocalBackendDeleteMissing(t *testing.T) {
	backend, err := storage.NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}

	err = backend.Delete("missing")
	if !errors.Is(err, storage.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestLocalBackendPutOverwrites(t *testing.T) {
	backend, err := storage.NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}

	id := "overwritten"
	if err := backend.Put(id, []byte("first")); err != nil {
		t.Fatalf("failed to store first version: %v", err)
	}
	if err := backend.Put(id, []byte("second")); err != nil {
		t.Fatalf("failed to store second version: %v", err)
	}

	got, err := backend.Get(id)
	if err != nil {
		t.Fatalf("failed to read blob: %v", err)
	}
	if string(got) != "second" {
		t.Fatalf("expected overwritten content, got %q", got)
	}
}

func TestLocalBackendLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	backend, err := storage.NewLocalBackend(root)
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}

	if err := backend.Put("clean", []byte("payload")); err != nil {
		t.Fatalf("failed to store blob: %v", err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("failed to list content root: %v", err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", filepath.Join(root, entry.Name()))
		}
	}
}
