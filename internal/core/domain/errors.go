package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not available in this build.
	ErrNotImplemented = errors.New("not implemented")

	// ErrValidation indicates a document was rejected before any write.
	// Use errors.As with *ValidationError for the details.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateDocument indicates the (name, path) pair is already stored.
	// Ingestion treats it as an idempotent skip.
	ErrDuplicateDocument = errors.New("duplicate document")

	// ErrStorage indicates an I/O or constraint failure in the document store.
	ErrStorage = errors.New("storage error")

	// OCR Errors. Engines degrade these to empty text; they are only
	// surfaced through logs and tests.

	// ErrOCRTimeout indicates the OCR call exceeded its deadline.
	ErrOCRTimeout = errors.New("ocr timed out")

	// ErrOCRFailure indicates the OCR engine could not process the image.
	ErrOCRFailure = errors.New("ocr failed")

	// ErrImageTooLarge indicates the image exceeds the pixel limit and was skipped.
	ErrImageTooLarge = errors.New("image too large for ocr")

	// Cache Errors.

	// ErrCacheMiss indicates the key is not cached.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCache indicates a cache backend failure; callers fall back to recomputing.
	ErrCache = errors.New("cache error")
)

// ValidationError describes why an input path was rejected.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %q: %s", e.Path, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) true for every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError.
func NewValidationError(path, reason string) *ValidationError {
	return &ValidationError{Path: path, Reason: reason}
}
