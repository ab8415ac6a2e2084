package patch

import "fmt"

// ErrorKind classifies apply failures. Every kind is terminal for the
// invocation: nothing in this pipeline retries automatically.
type ErrorKind string

const (
	// ErrFileNotFound - target does not exist and no creation mode was
	// indicated.
	ErrFileNotFound ErrorKind = "file_not_found"

	// ErrValidationFailed - one or more sections could not be matched or
	// overlap. Carries the full ValidationReport for diagnostics.
	ErrValidationFailed ErrorKind = "validation_failed"

	// ErrRejected - the approval collaborator declined or timed out. No file
	// mutation occurred.
	ErrRejected ErrorKind = "rejected"

	// ErrWriteFailed - the storage write failed after approval. The original
	// file is untouched or fully replaced, never partially written.
	ErrWriteFailed ErrorKind = "write_failed"

	// ErrIO - reading the snapshot or creating the file failed.
	ErrIO ErrorKind = "io_error"
)

// ApplyError is the structured failure surfaced by the orchestrator.
type ApplyError struct {
	Kind    ErrorKind
	Message string
	// Report is populated for ErrValidationFailed so callers can self-correct
	// without re-reading the whole file.
	Report *ValidationReport
	Err    error
}

func (e *ApplyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

func applyErrorf(kind ErrorKind, format string, args ...any) *ApplyError {
	return &ApplyError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
