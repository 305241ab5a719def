package handbook

import (
	"errors"
	"fmt"
)

// ValidationError reports input that was rejected before any state changed:
// bad title lengths, duplicate slugs, malformed imported snapshots.
type ValidationError struct {
	Field  string // Offending field (e.g. "module.title")
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// InvariantViolation reports an operation that would break a document
// invariant, such as deleting the last remaining module. State is unchanged.
type InvariantViolation struct {
	Op     string
	Reason string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// NotFoundError reports an operation addressing a module or block id that is
// no longer present. Callers generally treat it as a no-op.
type NotFoundError struct {
	Kind string // "module" or "block"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// ExternalServiceError wraps a failure of an external collaborator (image
// host, suggestion service). It never affects the document model.
type ExternalServiceError struct {
	Service   string
	Operation string
	Err       error
	Retryable bool
}

func (e *ExternalServiceError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("service %q %s failed: %v", e.Service, e.Operation, e.Err)
	}
	return fmt.Sprintf("service %q: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// IOError reports a durable-storage read or write failure that persisted
// through retries.
type IOError struct {
	Op  string // "save" or "load"
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsInvariant reports whether err is an InvariantViolation.
func IsInvariant(err error) bool {
	var iv *InvariantViolation
	return errors.As(err, &iv)
}
