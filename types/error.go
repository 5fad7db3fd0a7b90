package types

import "fmt"

// ErrorCode represents a unified error code across the orchestrator.
type ErrorCode string

// TTS error codes
const (
	ErrTTSTimeout      ErrorCode = "TTS_TIMEOUT"
	ErrTTSNetwork      ErrorCode = "TTS_NETWORK"
	ErrTTSDecode       ErrorCode = "TTS_DECODE"
	ErrTTSFallbackUsed ErrorCode = "TTS_FALLBACK_USED"
	ErrTTSFailAll      ErrorCode = "TTS_FAIL_ALL"
)

// Text generator error codes
const (
	ErrGenTimeout ErrorCode = "GEN_TIMEOUT"
	ErrGenNetwork ErrorCode = "GEN_NETWORK"
	ErrGenEmpty   ErrorCode = "GEN_EMPTY"
)

// Pipeline error codes
const (
	ErrEmptyAfterSanitize     ErrorCode = "EMPTY_AFTER_SANITIZE"
	ErrAgentUnknown           ErrorCode = "AGENT_UNKNOWN"
	ErrInterpellationDeadline ErrorCode = "INTERPELLATION_DEADLINE"
	ErrInvariantViolation     ErrorCode = "INVARIANT_VIOLATION"
	ErrSessionClosed          ErrorCode = "SESSION_CLOSED"
	ErrExerciseUnknown        ErrorCode = "EXERCISE_UNKNOWN"
)

// TTSHTTPCode builds the code for an upstream TTS HTTP failure, e.g. TTS_HTTP_500.
func TTSHTTPCode(status int) ErrorCode {
	return ErrorCode(fmt.Sprintf("TTS_HTTP_%d", status))
}

// GenHTTPCode builds the code for an upstream generator HTTP failure, e.g. GEN_HTTP_429.
func GenHTTPCode(status int) ErrorCode {
	return ErrorCode(fmt.Sprintf("GEN_HTTP_%d", status))
}

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
