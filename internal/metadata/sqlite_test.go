package metadata

import (
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func testRecord(id string) ImageRecord {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	return ImageRecord{
		ID:        id,
		Filename:  "photo.png",
		Format:    "png",
		MIME:      "image/png",
		SizeBytes: 1234,
		Width:     100,
		Height:    50,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSQLiteStoreCreateAndRead(t *testing.T) {
	store := newTestStore(t)

	want := testRecord("id-1")
	if err := store.Create(want); err != nil {
		t.Fatalf("failed to create record: %v", err)
	}

	got, err := store.Read("id-1")
	if err != nil {
		t.Fatalf("failed to read record: %v", err)
	}
	if got != want {
		t.Fatalf("read record differs: got %+v want %+v", got, want)
	}
}

func TestSQLiteStoreCreateConflict(t *testing.T) {
	store := newTestStore(t)

	if err := store.Create(testRecord("id-1")); err != nil {
		t.Fatalf("failed to create record: %v", err)
	}
	err := store.Create(testRecord("id-1"))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestSQLiteStoreReadMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Read("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStoreUpdate(t *testing.T) {
	store := newTestStore(t)

	record := testRecord("id-1")
	if err := store.Create(record); err != nil {
		t.Fatalf("failed to create record: %v", err)
	}

	patch := RecordPatch{
		SizeBytes: 999,
		Width:     50,
		Height:    25,
		UpdatedAt: record.UpdatedAt.Add(time.Hour),
	}
	if err := store.Update("id-1", patch); err != nil {
		t.Fatalf("failed to update record: %v", err)
	}

	got, err := store.Read("id-1")
	if err != nil {
		t.Fatalf("failed to read record: %v", err)
	}
	if got.SizeBytes != 999 || got.Width != 50 || got.Height != 25 {
		t.Fatalf("patch not applied: %+v", got)
	}
	if !got.UpdatedAt.Equal(patch.UpdatedAt) {
		t.Fatalf("updated_at not applied: got %v want %v", got.UpdatedAt, patch.UpdatedAt)
	}
	if !got.CreatedAt.Equal(record.CreatedAt) {
		t.Fatalf("created_at must not change on update")
	}
}

func TestSQLiteStoreUpdateMissing(t *testing.T) {
	store := newTestStore(t)

	err := store.Update("missing", RecordPatch{UpdatedAt: time.Now()})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStoreDelete(t *testing.T) {
	store := newTestStore(t)

	if err := store.Create(testRecord("id-1")); err != nil {
		t.Fatalf("failed to create record: %v", err)
	}
	if err := store.Delete("id-1"); err != nil {
		t.Fatalf("failed to delete record: %v", err)
	}
	if _, err := store.Read("id-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete("id-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSQLiteStoreListInsertionOrder(t *testing.T) {
	store := newTestStore(t)

	ids := []string{"id-c", "id-a", "id-b"}
	for _, id := range ids {
		if err := store.Create(testRecord(id)); err != nil {
			t.Fatalf("failed to create record %s: %v", id, err)
		}
	}

	records, err := store.List()
	if err != nil {
		t.Fatalf("failed to list records: %v", err)
	}
	if len(records) != len(ids) {
		t.Fatalf("expected %d records, got %d", len(ids), len(records))
	}
	for i, id := range ids {
		if records[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, records[i].ID)
		}
	}
}

func TestSQLiteStoreListEmpty(t *testing.T) {
	store := newTestStore(t)

	records, err := store.List()
	if err != nil {
		t.Fatalf("failed to list records: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty snapshot, got %d records", len(records))
	}
}
