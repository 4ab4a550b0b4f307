// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	stderrors "errors"
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
	ErrCodeSourceUnavailable      ErrorCode = "SOURCE_UNAVAILABLE"
	ErrCodeOracleTransientFailure ErrorCode = "ORACLE_TRANSIENT_FAILURE"
	ErrCodeOracleExhausted        ErrorCode = "ORACLE_EXHAUSTED"
	ErrCodeNoPlausibleCandidate   ErrorCode = "NO_PLAUSIBLE_CANDIDATE"
	ErrCodeAmbiguousDeceasedMatch ErrorCode = "AMBIGUOUS_DECEASED_MATCH"

	ErrCodeInvalidTarget      ErrorCode = "INVALID_TARGET"
	ErrCodeInvalidOwnerRecord ErrorCode = "INVALID_OWNER_RECORD"

	ErrCodeOutcomePersistFailed ErrorCode = "OUTCOME_PERSIST_FAILED"
	ErrCodeOutcomePublishFailed ErrorCode = "OUTCOME_PUBLISH_FAILED"
	ErrCodeCacheUnavailable     ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeBrokerUnavailable    ErrorCode = "BROKER_UNAVAILABLE"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Sentinels for errors.Is checks at package boundaries.
var (
	ErrSourceUnavailable      = stderrors.New(string(ErrCodeSourceUnavailable))
	ErrOracleTransientFailure = stderrors.New(string(ErrCodeOracleTransientFailure))
	ErrOracleExhausted        = stderrors.New(string(ErrCodeOracleExhausted))
	ErrInvalidTarget          = stderrors.New(string(ErrCodeInvalidTarget))
	ErrInvalidOwnerRecord     = stderrors.New(string(ErrCodeInvalidOwnerRecord))
	ErrOutcomePersistFailed   = stderrors.New(string(ErrCodeOutcomePersistFailed))
	ErrOutcomePublishFailed   = stderrors.New(string(ErrCodeOutcomePublishFailed))
	ErrCacheUnavailable       = stderrors.New(string(ErrCodeCacheUnavailable))
	ErrBrokerUnavailable      = stderrors.New(string(ErrCodeBrokerUnavailable))
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

// Is matches a StandardError against the sentinel carrying the same code.
func (e *StandardError) Is(target error) bool {
	return target != nil && target.Error() == string(e.Code)
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
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewSourceUnavailableError records a failed adapter call. It is never surfaced
// as a run failure; adapters log it and return an empty result.
func NewSourceUnavailableError(source string, err error) *StandardError {
	e := newError(ErrCodeSourceUnavailable, "Source adapter call failed", err.Error(), true)
	e.Metadata = map[string]interface{}{"source": source}
	return e
}

// NewOracleTransientError wraps a failed oracle call (network, rate limit, parse).
func NewOracleTransientError(err error) *StandardError {
	return newError(ErrCodeOracleTransientFailure, "Match oracle call failed", err.Error(), true)
}

// NewOracleExhaustedError is produced once the retry policy gives up.
func NewOracleExhaustedError(attempts int, err error) *StandardError {
	e := newError(ErrCodeOracleExhausted, "Match oracle retries exhausted", err.Error(), false)
	e.Metadata = map[string]interface{}{"attempts": attempts}
	return e
}

// NewInvalidTargetError rejects a search target that cannot be resolved.
func NewInvalidTargetError(details string) *StandardError {
	return newError(ErrCodeInvalidTarget, "Search target is invalid", details, false)
}

// NewInvalidOwnerRecordError rejects an owner record with nothing searchable.
func NewInvalidOwnerRecordError(details string) *StandardError {
	return newError(ErrCodeInvalidOwnerRecord, "Owner record could not be parsed", details, false)
}

// NewOutcomePersistError wraps a failed write to the outcome store.
func NewOutcomePersistError(err error) *StandardError {
	return newError(ErrCodeOutcomePersistFailed, "Failed to persist resolution outcome", err.Error(), true)
}

// NewOutcomePublishError wraps a failed notification or CRM push.
func NewOutcomePublishError(channel string, err error) *StandardError {
	e := newError(ErrCodeOutcomePublishFailed, "Failed to publish resolution outcome", err.Error(), true)
	e.Metadata = map[string]interface{}{"channel": channel}
	return e
}

// NewCacheUnavailableError wraps a persisted profile cache failure.
func NewCacheUnavailableError(err error) *StandardError {
	return newError(ErrCodeCacheUnavailable, "Profile cache unavailable", err.Error(), true)
}

// NewBrokerUnavailableError wraps a failed call to the Zeebe gateway.
func NewBrokerUnavailableError(operation string, retryable bool, err error) *StandardError {
	e := newError(ErrCodeBrokerUnavailable, "Zeebe operation failed", err.Error(), retryable)
	e.Metadata = map[string]interface{}{"operation": operation}
	return e
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeOutcomePersistFailed,
		ErrCodeOutcomePublishFailed,
		ErrCodeOracleTransientFailure:
		return 3

	case ErrCodeSourceUnavailable,
		ErrCodeCacheUnavailable:
		return 2

	default:
		return 0 // Business errors: no retry
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

// AsStandardError unwraps err into a StandardError when one is in the chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "SOURCE") || strings.Contains(codeStr, "CACHE"):
		return "SOURCE"
	case strings.Contains(codeStr, "ORACLE"):
		return "AI"
	case strings.Contains(codeStr, "BROKER"):
		return "INFRASTRUCTURE"
	case strings.Contains(codeStr, "OUTCOME"):
		return "DELIVERY"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	case strings.Contains(codeStr, "CANDIDATE") || strings.Contains(codeStr, "DECEASED"):
		return "RESOLUTION"
	default:
		return "OTHER"
	}
}
