package metadata

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no record exists for an identifier.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when Create collides with an existing identifier.
	ErrConflict = errors.New("record already exists")
)

// ImageRecord is the structured metadata describing one image asset.
// It is created at upload time from validated content and mutated only
// through the orchestrator's edit path.
type ImageRecord struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Format    string    `json:"format"`
	MIME      string    `json:"mime"`
	SizeBytes int64     `json:"sizeBytes"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RecordPatch carries the fields Update may change after an edit.
type RecordPatch struct {
	SizeBytes int64
	Width     int
	Height    int
	UpdatedAt time.Time
}

// Store owns the identifier-to-record mapping. It enforces identifier
// uniqueness at Create time but never coordinates with the byte
// storage backend; keeping both sides consistent is the orchestrator's
// job.
type Store interface {
	Create(record ImageRecord) error
	Read(id string) (ImageRecord, error)
	Update(id string, patch RecordPatch) error
	Delete(id string) error
	// List returns a finite snapshot of all records in insertion
	// order, not a live view.
	List() ([]ImageRecord, error)
	Close() error
}
