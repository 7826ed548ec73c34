package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// LocalBackend stores one blob per identifier under a content root on
// the local filesystem. The filesystem namespace tolerates concurrent
// non-colliding file operations; same-identifier serialization is the
// caller's responsibility.
type LocalBackend struct {
	root string
}

// NewLocalBackend creates the content root if necessary.
func NewLocalBackend(root string) (*LocalBackend, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create content root %s: %w", root, err)
	}
	return &LocalBackend{root: root}, nil
}

func (b *LocalBackend) blobPath(id string) string {
	return filepath.Join(b.root, id)
}

// Put writes the blob to a temporary file in the content root and
// renames it into place. Rename within one directory is atomic, so a
// concurrent Get observes either the previous blob or the new one.
func (b *LocalBackend) Put(id string, data []byte) error {
	tmp, err := os.CreateTemp(b.root, "."+id+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to sync blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, b.blobPath(id)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move blob into place: %w", err)
	}

	slog.Debug("stored blob",
		"id", id,
		"size_bytes", len(data))
	return nil
}

func (b *LocalBackend) Get(id string) ([]byte, error) {
	data, err := os.ReadFile(b.blobPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("failed to read blob %s: %w", id, err)
	}
	return data, nil
}

func (b *LocalBackend) Delete(id string) error {
	err := os.Remove(b.blobPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotExist
		}
		return fmt.Errorf("failed to delete blob %s: %w", id, err)
	}
	slog.Debug("deleted blob", "id", id)
	return nil
}

func (b *LocalBackend) Exists(id string) (bool, error) {
	_, err := os.Stat(b.blobPath(id))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat blob %s: %w", id, err)
}
