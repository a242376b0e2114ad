// Package errors provides standardized error handling for the verification
// workflow and its HTTP surface.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Input validation
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeNPIInvalid       ErrorCode = "NPI_INVALID"

	// Signup conflicts
	ErrCodeDuplicateEmail ErrorCode = "DUPLICATE_EMAIL"

	// Lookups
	ErrCodeCustomerNotFound ErrorCode = "CUSTOMER_NOT_FOUND"
	ErrCodeFileNotFound     ErrorCode = "FILE_NOT_FOUND"

	// Document handle acceptance filter
	ErrCodeFileMissing     ErrorCode = "FILE_MISSING"
	ErrCodeFileTypeInvalid ErrorCode = "FILE_TYPE_INVALID"
	ErrCodeFileTooLarge    ErrorCode = "FILE_TOO_LARGE"

	// Verification token
	ErrCodeTokenMalformed        ErrorCode = "TOKEN_MALFORMED"
	ErrCodeTokenSignatureInvalid ErrorCode = "TOKEN_SIGNATURE_INVALID"
	ErrCodeTokenExpired          ErrorCode = "TOKEN_EXPIRED"
	ErrCodeTokenConsumed         ErrorCode = "TOKEN_CONSUMED"

	// State machine
	ErrCodeTransitionInvalid ErrorCode = "TRANSITION_INVALID"

	// External collaborators
	ErrCodeUpstreamFailed  ErrorCode = "UPSTREAM_FAILED"
	ErrCodeEmailSendFailed ErrorCode = "EMAIL_SEND_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// CodeOf extracts the error code from any error, defaulting to
// INTERNAL_ERROR for errors that did not originate here.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// HTTPStatus maps an error code to the response status of the transition
// that surfaced it. Unknown codes map to 500.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed, ErrCodeNPIInvalid,
		ErrCodeFileMissing, ErrCodeFileTypeInvalid, ErrCodeFileTooLarge,
		ErrCodeTokenMalformed, ErrCodeTokenSignatureInvalid,
		ErrCodeTokenExpired, ErrCodeTokenConsumed:
		return http.StatusBadRequest
	case ErrCodeCustomerNotFound, ErrCodeFileNotFound:
		return http.StatusNotFound
	case ErrCodeDuplicateEmail, ErrCodeTransitionInvalid:
		return http.StatusConflict
	case ErrCodeUpstreamFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError creates a non-retryable input validation error.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNPIInvalidError creates a non-retryable NPI format error.
func NewNPIInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNPIInvalid,
		Message:   "NPI must be exactly 10 digits",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateEmailError signals an already-registered signup email.
func NewDuplicateEmailError(email string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateEmail,
		Message:   "An account with this email already exists",
		Details:   email,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCustomerNotFoundError signals an unknown applicant id.
func NewCustomerNotFoundError(customerID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCustomerNotFound,
		Message:   "Customer not found",
		Details:   customerID,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFileNotFoundError signals a missing document handle.
func NewFileNotFoundError(name string) *StandardError {
	return &StandardError{
		Code:      ErrCodeFileNotFound,
		Message:   "File not found",
		Details:   name,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFileMissingError signals an upload request without a file part.
func NewFileMissingError() *StandardError {
	return &StandardError{
		Code:      ErrCodeFileMissing,
		Message:   "No file uploaded",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFileTypeInvalidError signals a MIME type outside the allow-list.
func NewFileTypeInvalidError(mimeType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeFileTypeInvalid,
		Message:   "Invalid file type. Only JPG, PNG, and PDF files are allowed",
		Details:   mimeType,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFileTooLargeError signals a file above the size ceiling.
func NewFileTooLargeError(limit int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeFileTooLarge,
		Message:   fmt.Sprintf("File size exceeds %dMB limit", limit/(1024*1024)),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTokenMalformedError signals a token that could not be decoded.
func NewTokenMalformedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTokenMalformed,
		Message:   "Invalid token format",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTokenSignatureInvalidError signals a signature mismatch.
func NewTokenSignatureInvalidError() *StandardError {
	return &StandardError{
		Code:      ErrCodeTokenSignatureInvalid,
		Message:   "Invalid token signature",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTokenExpiredError signals a token past its validity window.
func NewTokenExpiredError() *StandardError {
	return &StandardError{
		Code:      ErrCodeTokenExpired,
		Message:   "Token has expired",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTokenConsumedError signals a replayed single-use token.
func NewTokenConsumedError() *StandardError {
	return &StandardError{
		Code:      ErrCodeTokenConsumed,
		Message:   "Token has already been used",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransitionInvalidError signals an operation that is illegal in the
// applicant's current state (e.g. approving an already-terminal applicant).
func NewTransitionInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransitionInvalid,
		Message:   "Operation not allowed in the applicant's current state",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamError creates a retryable external-store error.
func NewUpstreamError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamFailed,
		Message:   "External store request failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmailSendError creates a retryable email dispatch error.
func NewEmailSendError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmailSendFailed,
		Message:   "Failed to send email",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
