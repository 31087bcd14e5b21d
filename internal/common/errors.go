// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/model"
)

// Common application errors.
var (
	// Lookup errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Document quality errors. Terminal: never retried.
	ErrUnsuitableDocument = errors.New("document unsuitable for extraction")
	ErrUnreadableDocument = errors.New("document could not be read")

	// Classifier errors.
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	ErrClassifierTimeout     = errors.New("classifier timed out")
	ErrClassifierRejected    = errors.New("classifier rejected input")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ValidationError indicates a caller supplied a bad input shape.
// Never retried; surfaced directly.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a validation error for a named input.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InvalidTransitionError indicates a state machine was asked for an
// unreachable transition. Always a bug, never expected in normal operation.
type InvalidTransitionError struct {
	From model.SessionStatus
	To   model.SessionStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid session transition %s -> %s", e.From, e.To)
}

// ExternalServiceError wraps a transient failure from a collaborator
// (classifier, storage). Retried up to the policy limit; the underlying
// message is preserved verbatim for diagnosis.
type ExternalServiceError struct {
	Err     error
	Service string
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// NewExternalServiceError wraps err as a transient collaborator failure.
func NewExternalServiceError(service string, err error) error {
	return &ExternalServiceError{Service: service, Err: err}
}

// UserError represents an error whose message is safe to surface to the
// user; internal detail stays in the wrapped error.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// UserMessage extracts the surfaceable message from err, falling back to
// a generic one so stack detail never leaks through session status.
func UserMessage(err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage
	}
	if errors.Is(err, ErrUnsuitableDocument) {
		return "The uploaded document does not look like a financial statement. Please upload a bank or card statement."
	}
	if errors.Is(err, ErrNotFound) {
		return "Session not found or expired."
	}
	return err.Error()
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	// Terminal classes first: a bad document or rejected input never
	// benefits from another attempt.
	if errors.Is(err, ErrUnsuitableDocument) ||
		errors.Is(err, ErrUnreadableDocument) ||
		errors.Is(err, ErrClassifierRejected) {
		return false
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return false
	}

	if errors.Is(err, ErrClassifierUnavailable) ||
		errors.Is(err, ErrClassifierTimeout) ||
		errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var svcErr *ExternalServiceError
	if errors.As(err, &svcErr) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
