package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jo-hoe/imagevault/internal/detection"
	"github.com/jo-hoe/imagevault/internal/imaging"
	"github.com/jo-hoe/imagevault/internal/metadata"
	"github.com/jo-hoe/imagevault/internal/storage"
	"github.com/jo-hoe/imagevault/internal/transform"
)

// ErrDetectionDisabled is returned when no detection service is configured.
var ErrDetectionDisabled = errors.New("detection service is not configured")

// ContentCache accelerates repeated content reads. Implementations
// must treat failures as misses; the orchestrator never depends on the
// cache for correctness.
type ContentCache interface {
	Get(ctx context.Context, id string) ([]byte, bool)
	Set(ctx context.Context, id string, data []byte)
	Invalidate(ctx context.Context, id string)
}

// Detector forwards image bytes to the external object detection
// service.
type Detector interface {
	Detect(ctx context.Context, data []byte, mime string, threshold float64) ([]detection.Detection, error)
}

// VaultService is the single entry point for image asset operations.
// It composes the validator, the storage backend and the metadata
// store into atomic create/read/edit/delete operations: every
// operation either commits both the bytes and the record or leaves
// neither behind. All components are constructed once, hold no
// per-request state and are shared across concurrent requests; the
// per-identifier lock is the only shared mutable resource.
type VaultService struct {
	backend      storage.Backend
	records      metadata.Store
	validator    *imaging.Validator
	contentCache ContentCache
	detector     Detector
	locks        *keyedLock
}

// NewVaultService wires the orchestrator. contentCache and detector
// are optional; nil disables the respective feature.
func NewVaultService(
	backend storage.Backend,
	records metadata.Store,
	validator *imaging.Validator,
	contentCache ContentCache,
	detector Detector,
) *VaultService {
	return &VaultService{
		backend:      backend,
		records:      records,
		validator:    validator,
		contentCache: contentCache,
		detector:     detector,
		locks:        newKeyedLock(),
	}
}

// Upload validates raw bytes and persists them together with a fresh
// metadata record. State machine: Validating, Persisting-Bytes,
// Persisting-Metadata, Committed. If the record cannot be written the
// already persisted bytes are removed again, so a failed upload leaves
// nothing behind.
func (s *VaultService) Upload(ctx context.Context, data []byte, filename, declaredMIME string) (metadata.ImageRecord, error) {
	decoded, err := s.validator.ValidateUpload(data, declaredMIME)
	if err != nil {
		var validationErr *imaging.ValidationError
		if errors.As(err, &validationErr) {
			return metadata.ImageRecord{}, &ValidationError{Check: validationErr.Check, Reason: validationErr.Reason}
		}
		return metadata.ImageRecord{}, &ValidationError{Check: imaging.CheckFormat, Reason: err.Error()}
	}

	id := uuid.NewString()
	unlock := s.locks.lock(id)
	defer unlock()

	if err := s.backend.Put(id, decoded.Data); err != nil {
		// Bytes never landed, metadata was never touched
		return metadata.ImageRecord{}, &IOError{Phase: PhasePersistingBytes, Err: err}
	}

	now := time.Now().UTC()
	record := metadata.ImageRecord{
		ID:        id,
		Filename:  filename,
		Format:    string(decoded.Format),
		MIME:      decoded.MIME,
		SizeBytes: int64(len(decoded.Data)),
		Width:     decoded.Width,
		Height:    decoded.Height,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.records.Create(record); err != nil {
		// Compensating rollback: remove the orphaned bytes so the net
		// observable state is "operation failed, nothing exists".
		if deleteErr := s.backend.Delete(id); deleteErr != nil && !errors.Is(deleteErr, storage.ErrNotExist) {
			integrityErr := &IntegrityError{Phase: PhasePersistingMetadata, ID: id, Err: deleteErr}
			slog.Error("failed to roll back orphaned bytes",
				"id", id,
				"phase", PhasePersistingMetadata,
				"error", deleteErr)
			return metadata.ImageRecord{}, integrityErr
		}
		if errors.Is(err, metadata.ErrConflict) {
			return metadata.ImageRecord{}, &ConflictError{ID: id}
		}
		return metadata.ImageRecord{}, &IOError{Phase: PhasePersistingMetadata, Err: err}
	}

	slog.Info("image uploaded",
		"id", id,
		"filename", filename,
		"format", record.Format,
		"width", record.Width,
		"height", record.Height,
		"size_bytes", record.SizeBytes)

	return record, nil
}

// Get returns the metadata record for an identifier.
func (s *VaultService) Get(ctx context.Context, id string) (metadata.ImageRecord, error) {
	record, err := s.records.Read(id)
	if err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			return metadata.ImageRecord{}, &NotFoundError{ID: id}
		}
		return metadata.ImageRecord{}, &IOError{Phase: PhaseLoading, Err: err}
	}
	return record, nil
}

// GetContent returns the stored bytes together with the record. A
// record whose bytes cannot be retrieved is reported as an integrity
// violation, never as empty content.
func (s *VaultService) GetContent(ctx context.Context, id string) ([]byte, metadata.ImageRecord, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, metadata.ImageRecord{}, err
	}

	if s.contentCache != nil {
		if data, ok := s.contentCache.Get(ctx, id); ok {
			return data, record, nil
		}
	}

	data, err := s.backend.Get(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			integrityErr := &IntegrityError{Phase: PhaseLoading, ID: id, Err: err}
			slog.Error("record exists but bytes are missing",
				"id", id,
				"error", err)
			return nil, metadata.ImageRecord{}, integrityErr
		}
		return nil, metadata.ImageRecord{}, &IOError{Phase: PhaseLoading, Err: err}
	}

	if s.contentCache != nil {
		s.contentCache.Set(ctx, id, data)
	}

	return data, record, nil
}

// List returns a snapshot of all records in insertion order.
func (s *VaultService) List(ctx context.Context) ([]metadata.ImageRecord, error) {
	records, err := s.records.List()
	if err != nil {
		return nil, &IOError{Phase: PhaseLoading, Err: err}
	}
	return records, nil
}

// Edit applies a transform to a stored image in place. State machine:
// Loading, Transforming, Persisting-Bytes, Updating-Metadata,
// Committed. The transform spec is compiled (and its parameters range
// checked) before any pixel data is touched; a failure during
// transforming or persisting leaves the original bytes and record
// untouched. Once the new bytes are renamed into place the metadata
// update is no longer cancellable.
func (s *VaultService) Edit(ctx context.Context, id string, spec transform.Spec) (metadata.ImageRecord, error) {
	command, err := transform.Compile(spec)
	if err != nil {
		return metadata.ImageRecord{}, &ValidationError{Check: "parameter-range", Reason: err.Error()}
	}

	unlock := s.locks.lock(id)
	defer unlock()

	record, err := s.Get(ctx, id)
	if err != nil {
		return metadata.ImageRecord{}, err
	}

	data, err := s.backend.Get(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			integrityErr := &IntegrityError{Phase: PhaseLoading, ID: id, Err: err}
			slog.Error("record exists but bytes are missing",
				"id", id,
				"error", err)
			return metadata.ImageRecord{}, integrityErr
		}
		return metadata.ImageRecord{}, &IOError{Phase: PhaseLoading, Err: err}
	}

	img, err := imaging.Decode(data)
	if err != nil {
		return metadata.ImageRecord{}, &TransformError{Op: spec.Name, Err: err}
	}

	result, err := command.Apply(img)
	if err != nil {
		return metadata.ImageRecord{}, &TransformError{Op: spec.Name, Err: err}
	}

	// Re-encode in the original container format
	encoded, err := imaging.Encode(result, imaging.Format(record.Format))
	if err != nil {
		return metadata.ImageRecord{}, &TransformError{Op: spec.Name, Err: err}
	}

	// Last cancellation point: after this the write+update pair runs
	// to completion so bytes and record cannot diverge.
	if err := ctx.Err(); err != nil {
		return metadata.ImageRecord{}, &IOError{Phase: PhasePersistingBytes, Err: err}
	}
	ctx = context.WithoutCancel(ctx)

	if err := s.backend.Put(id, encoded); err != nil {
		// The atomic rename never happened, the original blob is intact
		return metadata.ImageRecord{}, &IOError{Phase: PhasePersistingBytes, Err: err}
	}

	// Invalidate only after the rename: a reader interleaving with an
	// earlier invalidation would repopulate the cache with the old
	// bytes and serve them past the commit.
	if s.contentCache != nil {
		s.contentCache.Invalidate(ctx, id)
	}

	patch := metadata.RecordPatch{
		SizeBytes: int64(len(encoded)),
		Width:     result.Bounds().Dx(),
		Height:    result.Bounds().Dy(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.records.Update(id, patch); err != nil {
		integrityErr := &IntegrityError{Phase: PhaseUpdatingMetadata, ID: id, Err: err}
		slog.Error("bytes overwritten but record update failed",
			"id", id,
			"transform", spec.Name,
			"error", err)
		return metadata.ImageRecord{}, integrityErr
	}

	record.SizeBytes = patch.SizeBytes
	record.Width = patch.Width
	record.Height = patch.Height
	record.UpdatedAt = patch.UpdatedAt

	slog.Info("image edited",
		"id", id,
		"transform", spec.Name,
		"width", record.Width,
		"height", record.Height,
		"size_bytes", record.SizeBytes)

	return record, nil
}

// Delete removes the bytes and the record. Both removals are always
// attempted; any observed divergence between the two resources is
// surfaced as an IntegrityError for operator remediation instead of
// being silently swallowed.
func (s *VaultService) Delete(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()

	if _, err := s.records.Read(id); err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			return &NotFoundError{ID: id}
		}
		return &IOError{Phase: PhaseLoading, Err: err}
	}

	bytesErr := s.backend.Delete(id)
	recordErr := s.records.Delete(id)

	if s.contentCache != nil {
		s.contentCache.Invalidate(ctx, id)
	}

	switch {
	case bytesErr == nil && recordErr == nil:
		slog.Info("image deleted", "id", id)
		return nil
	case errors.Is(bytesErr, storage.ErrNotExist):
		// The record existed without bytes; the orphan record is gone
		// now but the divergence itself must not pass silently.
		integrityErr := &IntegrityError{Phase: PhaseDeletingBytes, ID: id, Err: fmt.Errorf("record existed without bytes: %w", bytesErr)}
		slog.Error("divergence detected during delete",
			"id", id,
			"bytes_error", bytesErr,
			"record_error", recordErr)
		return integrityErr
	case bytesErr == nil && recordErr != nil:
		integrityErr := &IntegrityError{Phase: PhaseDeletingMetadata, ID: id, Err: recordErr}
		slog.Error("bytes deleted but record removal failed",
			"id", id,
			"error", recordErr)
		return integrityErr
	case bytesErr != nil && recordErr == nil:
		integrityErr := &IntegrityError{Phase: PhaseDeletingBytes, ID: id, Err: bytesErr}
		slog.Error("record deleted but bytes removal failed",
			"id", id,
			"error", bytesErr)
		return integrityErr
	default:
		return &IOError{Phase: PhaseDeletingBytes, Err: errors.Join(bytesErr, recordErr)}
	}
}

// Detect loads the stored bytes and forwards them to the external
// object detection service. The vault does not interpret the results.
func (s *VaultService) Detect(ctx context.Context, id string, threshold float64) ([]detection.Detection, error) {
	if s.detector == nil {
		return nil, ErrDetectionDisabled
	}
	if threshold < 0 || threshold > 1 {
		return nil, &ValidationError{
			Check:  "parameter-range",
			Reason: fmt.Sprintf("confidence threshold must be between 0 and 1, got %v", threshold),
		}
	}

	data, record, err := s.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}

	detections, err := s.detector.Detect(ctx, data, record.MIME, threshold)
	if err != nil {
		return nil, &IOError{Phase: PhaseDetecting, Err: err}
	}
	return detections, nil
}
