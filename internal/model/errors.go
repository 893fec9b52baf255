package model

import (
	"errors"
	"fmt"

	"artdiff/pkg/errkind"
)

// Sentinel errors. Concrete errors wrap one of these; match with errors.Is.
var (
	// ErrConflict means an existing entity disagrees with the requested attributes.
	ErrConflict = errors.New("conflict")
	// ErrMissingPrecondition means required finalized data is absent.
	ErrMissingPrecondition = errors.New("missing precondition")
	// ErrResource means a raster could not be materialized or persisted.
	ErrResource = errors.New("resource error")
	// ErrValidation means malformed input.
	ErrValidation = errkind.Validation
	// ErrAmbiguousPair means more than one revision pair matched where one was expected.
	ErrAmbiguousPair = errors.New("ambiguous revision pair")
	// ErrNotFound means the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyGenerated means a comparison's difference was already computed.
	ErrAlreadyGenerated = errors.New("difference already generated")
)

// ConflictError describes a single attribute that disagrees with a request.
type ConflictError struct {
	RevisionID string
	Field      string
	Existing   any
	Requested  any
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("revision %s: %s is %v, requested %v", e.RevisionID, e.Field, e.Existing, e.Requested)
}

// Unwrap lets errors.Is match ErrConflict.
func (e *ConflictError) Unwrap() error { return ErrConflict }

// ResourceError wraps a raster storage failure with the resource involved.
type ResourceError struct {
	ResourceID string
	Op         string
	Err        error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s resource %s: %v", e.Op, e.ResourceID, e.Err)
}

// Unwrap returns both ErrResource and the underlying cause.
func (e *ResourceError) Unwrap() []error { return []error{ErrResource, e.Err} }
