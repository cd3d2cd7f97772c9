// Package errors provides standardized error handling for the funnel service.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodePostcodeInvalid  ErrorCode = "POSTCODE_INVALID"

	ErrCodeAddressLookupFailed  ErrorCode = "ADDRESS_LOOKUP_FAILED"
	ErrCodeAddressLookupTimeout ErrorCode = "ADDRESS_LOOKUP_TIMEOUT"
	ErrCodeNoAddressesFound     ErrorCode = "NO_ADDRESSES_FOUND"

	ErrCodeEligibilityCheckFailed ErrorCode = "ELIGIBILITY_CHECK_FAILED"
	ErrCodeEPCLookupFailed        ErrorCode = "EPC_LOOKUP_FAILED"

	ErrCodeLeadValidationFailed ErrorCode = "LEAD_VALIDATION_FAILED"
	ErrCodeLeadSubmitFailed     ErrorCode = "LEAD_SUBMIT_FAILED"

	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewValidationError creates a non-retryable local validation error. These
// are the only errors ever surfaced to the end user.
func NewValidationError(field, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   fmt.Sprintf("Invalid value for %s", field),
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"field": field},
		Timestamp: time.Now().UTC(),
	}
}

// NewPostcodeInvalidError creates a non-retryable postcode format error.
func NewPostcodeInvalidError(postcode string) *StandardError {
	return &StandardError{
		Code:      ErrCodePostcodeInvalid,
		Message:   "Please enter a valid postcode",
		Details:   fmt.Sprintf("postcode: %q", postcode),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAddressLookupFailedError creates a retryable address lookup error.
// The resolver recovers from it with placeholder addresses; it is recorded
// for diagnostics only.
func NewAddressLookupFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAddressLookupFailed,
		Message:   "Address lookup API error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAddressLookupTimeoutError creates a retryable lookup timeout error.
// Like the general lookup failure it is diagnostic only.
func NewAddressLookupTimeoutError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAddressLookupTimeout,
		Message:   "Address lookup timed out",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoAddressesFoundError creates a non-retryable empty-result error.
func NewNoAddressesFoundError(postcode string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoAddressesFound,
		Message:   "No addresses found for this postcode",
		Details:   fmt.Sprintf("postcode: %s", postcode),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEligibilityCheckFailedError creates a retryable eligibility error.
func NewEligibilityCheckFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEligibilityCheckFailed,
		Message:   "Eligibility check error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEPCLookupFailedError creates a retryable EPC lookup error.
func NewEPCLookupFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEPCLookupFailed,
		Message:   "EPC lookup error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLeadValidationFailedError creates a non-retryable payload schema error.
func NewLeadValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeLeadValidationFailed,
		Message:   "Lead payload failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLeadSubmitFailedError creates a retryable submission error. Per the
// funnel policy it is never surfaced; the submitter masks it to success.
func NewLeadSubmitFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLeadSubmitFailed,
		Message:   "Lead submission error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionNotFoundError creates a non-retryable session error.
func NewSessionNotFoundError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionNotFound,
		Message:   "Wizard session not found or expired",
		Details:   fmt.Sprintf("sessionId: %s", sessionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
