package model

import (
	"errors"
	"fmt"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Code          string `json:"code,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON      = "INVALID_JSON"
	ErrCodeMissingField     = "MISSING_FIELD"
	ErrCodeValidation       = "VALIDATION_FAILED"
	ErrCodeEmptyOrder       = "EMPTY_ORDER"
	ErrCodeInvalidQuantity  = "INVALID_QUANTITY"
	ErrCodeInvalidPrice     = "INVALID_PRICE"
	ErrCodeOrderNotFound    = "ORDER_NOT_FOUND"
	ErrCodePersistence      = "PERSISTENCE_ERROR"
	ErrCodeUnauthorised     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeDuplicateRequest = "DUPLICATE_SUBMISSION"
	ErrCodeIdempotencyReuse = "IDEMPOTENCY_KEY_REUSED"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrOrderNotFound = NewDomainError(ErrCodeOrderNotFound, "Order not found")

	// ErrDuplicateSubmission is returned by the repository when an order with the
	// same idempotency key has already been committed.
	ErrDuplicateSubmission = NewDomainError(ErrCodeDuplicateRequest, "Order with this idempotency key already exists")
)

// ValidationError reports a client-correctable problem with a submitted order.
// Field uses the request's JSON path, e.g. "items[1].quantity".
type ValidationError struct {
	Code    string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(code, field, message string) *ValidationError {
	return &ValidationError{
		Code:    code,
		Field:   field,
		Message: message,
	}
}

// PersistenceError reports that the store failed to complete an operation.
// Nothing partial is committed when it is returned, so the caller may retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// IsPersistence reports whether err is, or wraps, a PersistenceError.
func IsPersistence(err error) bool {
	var pErr *PersistenceError
	return errors.As(err, &pErr)
}
