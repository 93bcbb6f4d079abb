package models

import "fmt"

// Error codes used in API responses and internal error handling.
const (
	ErrCodeEmptyInput       = "EMPTY_INPUT"
	ErrCodeInvalidState     = "INVALID_STATE"
	ErrCodeTimeout          = "PROCESS_TIMEOUT"
	ErrCodeServerRejected   = "SERVER_REJECTED"
	ErrCodeUnreachable      = "BACKEND_UNREACHABLE"
	ErrCodeInvalidURL       = "INVALID_URL"
	ErrCodeNoValidURLs      = "NO_VALID_URLS"
	ErrCodeCaptureFailed    = "CAPTURE_FAILED"
	ErrCodeBundleFailed     = "BUNDLE_FAILED"
	ErrCodeArtifactNotFound = "ARTIFACT_NOT_FOUND"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ProcessError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ProcessError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// NewProcessError creates a new ProcessError.
func NewProcessError(code, message string, err error) *ProcessError {
	return &ProcessError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ProcessError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}
