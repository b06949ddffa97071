// Package services wires the scripting panel together and exposes it to the
// transport layer.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/scriptpanel/pkg/persistence"
	"github.com/dukex/scriptpanel/pkg/session"
)

var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest = errors.New("invalid request")

	// Panel lifecycle errors (409 Conflict).
	ErrPanelNotLoaded     = errors.New("panel is not loaded")
	ErrPanelAlreadyLoaded = errors.New("panel is already loaded")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string) *ServiceError {
	return &ServiceError{Op: op, Code: code, Message: message, Err: ErrInvalidRequest}
}

// IsValidationError checks if an error should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, session.ErrEmptySelection) ||
		errors.Is(err, session.ErrEmptyVariableName) ||
		errors.Is(err, persistence.ErrInvalidNodeID)
}

// IsConflictError checks if an error is a session state conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, session.ErrAlreadyRunning) ||
		errors.Is(err, session.ErrNotRunning) ||
		errors.Is(err, ErrPanelNotLoaded) ||
		errors.Is(err, ErrPanelAlreadyLoaded)
}

// IsUnprocessableError checks if an error means running is impossible in the
// current environment and should return HTTP 422.
func IsUnprocessableError(err error) bool {
	return errors.Is(err, session.ErrRunningUnsupported) ||
		errors.Is(err, session.ErrExecutableMissing)
}
