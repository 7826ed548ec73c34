package storage

import "errors"

// ErrNotExist is returned when no blob is stored under an identifier.
var ErrNotExist = errors.New("blob does not exist")

// Backend abstracts durable byte persistence for image content,
// addressed by an opaque identifier. Implementations must make Put
// atomic from the caller's perspective: a concurrent Get never
// observes a partially written blob.
type Backend interface {
	Put(id string, data []byte) error
	Get(id string) ([]byte, error)
	// Delete reports ErrNotExist for an unknown identifier so callers
	// can distinguish "already gone" from "delete succeeded".
	Delete(id string) error
	Exists(id string) (bool, error)
}
