package metadata

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists image records in a sqlite database. Insertion
// order is preserved through the implicit rowid.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(connectionString string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}

	// In-memory sqlite databases exist per connection, so the pool is
	// pinned to one connection; this also serializes writers, which
	// sqlite requires anyway.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS images (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		format TEXT NOT NULL,
		mime TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	return err
}

func (s *SQLiteStore) Create(record ImageRecord) error {
	// The orchestrator serializes operations per identifier, so the
	// existence probe and the insert cannot interleave with another
	// create of the same id.
	var exists int
	err := s.db.QueryRow("SELECT 1 FROM images WHERE id = ?", record.ID).Scan(&exists)
	if err == nil {
		return ErrConflict
	}
	if err != sql.ErrNoRows {
		return err
	}

	_, err = s.db.Exec(`INSERT INTO images
		(id, filename, format, mime, size_bytes, width, height, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Filename,
		record.Format,
		record.MIME,
		record.SizeBytes,
		record.Width,
		record.Height,
		record.CreatedAt.UTC().Format(time.RFC3339Nano),
		record.UpdatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteStore) Read(id string) (ImageRecord, error) {
	row := s.db.QueryRow(`SELECT id, filename, format, mime, size_bytes, width, height, created_at, updated_at
		FROM images WHERE id = ?`, id)
	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return ImageRecord{}, ErrNotFound
	}
	return record, err
}

func (s *SQLiteStore) Update(id string, patch RecordPatch) error {
	result, err := s.db.Exec(`UPDATE images
		SET size_bytes = ?, width = ?, height = ?, updated_at = ?
		WHERE id = ?`,
		patch.SizeBytes,
		patch.Width,
		patch.Height,
		patch.UpdatedAt.UTC().Format(time.RFC3339Nano),
		id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Delete(id string) error {
	result, err := s.db.Exec("DELETE FROM images WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) List() ([]ImageRecord, error) {
	rows, err := s.db.Query(`SELECT id, filename, format, mime, size_bytes, width, height, created_at, updated_at
		FROM images ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close() // Explicitly ignore error as we're already returning an error from the function
	}()

	var records []ImageRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (ImageRecord, error) {
	var record ImageRecord
	var createdAt, updatedAt string
	err := row.Scan(
		&record.ID,
		&record.Filename,
		&record.Format,
		&record.MIME,
		&record.SizeBytes,
		&record.Width,
		&record.Height,
		&createdAt,
		&updatedAt)
	if err != nil {
		return ImageRecord{}, err
	}

	record.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return ImageRecord{}, fmt.Errorf("malformed created_at for %s: %w", record.ID, err)
	}
	record.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return ImageRecord{}, fmt.Errorf("malformed updated_at for %s: %w", record.ID, err)
	}
	return record, nil
}
