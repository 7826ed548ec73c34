package core

import "fmt"

// Phase names the state machine step an operation failed in.
type Phase string

const (
	PhaseValidating         Phase = "validating"
	PhaseLoading            Phase = "loading"
	PhaseTransforming       Phase = "transforming"
	PhasePersistingBytes    Phase = "persisting-bytes"
	PhasePersistingMetadata Phase = "persisting-metadata"
	PhaseUpdatingMetadata   Phase = "updating-metadata"
	PhaseDeletingBytes      Phase = "deleting-bytes"
	PhaseDeletingMetadata   Phase = "deleting-metadata"
	PhaseDetecting          Phase = "detecting"
)

// ValidationError reports input rejected by a named check.
// Callers branch on the error, they never retry it.
type ValidationError struct {
	Check  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Check, e.Reason)
}

// ConflictError reports an identifier collision on create.
type ConflictError struct {
	ID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("image %s already exists", e.ID)
}

// NotFoundError reports a missing image asset.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("image %s not found", e.ID)
}

// IOError reports a storage backend failure. It may be transient;
// retrying is caller policy, the orchestrator never retries.
type IOError struct {
	Phase Phase
	Err   error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Phase, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// TransformError reports malformed pixel data or a failed transform.
// The stored image is left untouched.
type TransformError struct {
	Op  string
	Err error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %s failed: %v", e.Op, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// IntegrityError reports observed divergence between stored bytes and
// the metadata record. It signals a bug or external interference and
// requires operator remediation.
type IntegrityError struct {
	Phase Phase
	ID    string
	Err   error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation for image %s during %s: %v", e.ID, e.Phase, e.Err)
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}
