// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Pre-flight validation of saga input. Never retried: the profile data
	// itself is wrong, not the call.
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeMissingBankAccount ErrorCode = "MISSING_BANK_ACCOUNT"

	// Registration against the payment-collection service.
	ErrCodeStudentRegistrationFailed  ErrorCode = "STUDENT_REGISTRATION_FAILED"
	ErrCodePropertyRegistrationFailed ErrorCode = "PROPERTY_REGISTRATION_FAILED"
	ErrCodeRemoteUnavailable          ErrorCode = "REMOTE_UNAVAILABLE"
	ErrCodeBusinessRuleViolation      ErrorCode = "BUSINESS_RULE_VIOLATION"
	ErrCodeUnknownRemoteError         ErrorCode = "UNKNOWN_REMOTE_ERROR"

	// Record store access around the saga.
	ErrCodeRecordLoadFailed  ErrorCode = "RECORD_LOAD_FAILED"
	ErrCodeRecordWriteFailed ErrorCode = "RECORD_WRITE_FAILED"

	// Worker plumbing.
	ErrCodeInputParsingFailed ErrorCode = "INPUT_PARSING_FAILED"
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

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewValidationError creates a non-retryable input validation error.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Saga input validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingBankAccountError signals the pre-flight abort: no bank account
// number on the tenant profile, so no remote call is ever issued.
func NewMissingBankAccountError(studentID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingBankAccount,
		Message:   "Tenant has no bank account number; mandate setup aborted before any remote call",
		Details:   fmt.Sprintf("studentId: %s", studentID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStudentRegistrationError creates a fatal student registration error.
func NewStudentRegistrationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStudentRegistrationFailed,
		Message:   "Student registration with payment-collection service failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPropertyRegistrationError creates a fatal property registration error.
func NewPropertyRegistrationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePropertyRegistrationFailed,
		Message:   "Property registration with payment-collection service failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRemoteUnavailableError creates a retryable transport-level error whose
// details name the probable cause (unreachable, certificate, timeout).
func NewRemoteUnavailableError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRemoteUnavailable,
		Message:   "Payment-collection service unavailable",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewBusinessRuleError creates a non-retryable business rule violation,
// e.g. an amount-limit rejection from the payment-collection service.
func NewBusinessRuleError(message, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBusinessRuleViolation,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownRemoteError is the fallback for remote failures the normalizer
// could not classify; it carries the best-effort normalized message.
func NewUnknownRemoteError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownRemoteError,
		Message:   "Payment-collection service returned an unclassified error",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecordLoadError creates a retryable record store read error.
func NewRecordLoadError(entity string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecordLoadFailed,
		Message:   fmt.Sprintf("Failed to load %s record", entity),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecordWriteError creates a retryable record store write error.
func NewRecordWriteError(entity string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecordWriteFailed,
		Message:   fmt.Sprintf("Failed to write %s record", entity),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInputParsingError creates a non-retryable job variable parsing error.
func NewInputParsingError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInputParsingFailed,
		Message:   "Failed to parse job variables",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count per error code.
// Transport and record-store problems are worth retrying at the job level;
// validation failures and remote business rejections are not.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeRecordLoadFailed, ErrCodeRecordWriteFailed:
		return 3

	case ErrCodeRemoteUnavailable:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "MISSING") || strings.Contains(codeStr, "INPUT"):
		return "VALIDATION"
	case strings.Contains(codeStr, "RECORD"):
		return "RECORD_STORE"
	case strings.Contains(codeStr, "REGISTRATION") || strings.Contains(codeStr, "REMOTE") || strings.Contains(codeStr, "BUSINESS"):
		return "PAYMENT_COLLECTION"
	default:
		return "OTHER"
	}
}
