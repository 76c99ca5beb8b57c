package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("resource not found")
	ErrAuth          = errors.New("authentication failed")
	ErrBusy          = errors.New("operation already in progress")
	ErrStaleSnapshot = errors.New("project is no longer active")
)

// ValidationError is a client-side precondition failure. It is never sent
// over the wire.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// TransportError covers network failures, timeouts and non-2xx responses
// that are not classified as not-found or auth failures.
type TransportError struct {
	Op         string
	StatusCode int // 0 when no response was received
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s: service returned status %d: %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: service returned status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op + ": transport failure"
}

func (e *TransportError) Unwrap() error { return e.Err }

// RefreshError reports that a mutating call succeeded but the authoritative
// re-fetch that follows it failed. Server-side work is kept; the caller may
// refresh manually.
type RefreshError struct {
	ProjectID int64
	Err       error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh project %d: %v", e.ProjectID, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsTransport(err error) bool {
	var t *TransportError
	return errors.As(err, &t)
}
