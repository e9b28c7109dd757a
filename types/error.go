package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the module.
type ErrorCode string

// Caller / environment mistakes. The comparison harness records these as skipped.
const (
	// ErrConfiguration is raised only by the generator registry for unknown model names.
	ErrConfiguration ErrorCode = "CONFIGURATION"
	// ErrCredential is raised by adapter constructors when a required secret is absent.
	ErrCredential ErrorCode = "CREDENTIAL"
)

// Attempt failures. The comparison harness records these as errors.
const (
	ErrGeneration     ErrorCode = "GENERATION"
	ErrTimeout        ErrorCode = "TIMEOUT"
	ErrDownload       ErrorCode = "DOWNLOAD"
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	// Detail holds the backend's raw error payload, unmodified.
	Detail string `json:"detail,omitempty"`
	Cause  error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
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

// WithDetail attaches the backend's raw error payload.
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// NewConfigurationError reports a caller mistake such as an unknown model name.
func NewConfigurationError(format string, args ...any) *Error {
	return NewError(ErrConfiguration, fmt.Sprintf(format, args...))
}

// NewCredentialError reports a missing secret, naming the variable that should hold it.
func NewCredentialError(envVar, provider string) *Error {
	return NewError(ErrCredential,
		fmt.Sprintf("%s environment variable is required for %s", envVar, provider)).
		WithProvider(provider)
}

// NewGenerationError reports a job the backend explicitly failed.
func NewGenerationError(provider, message string) *Error {
	return NewError(ErrGeneration, message).WithProvider(provider)
}

// NewTimeoutError reports that the client stopped waiting; the remote job's outcome is unknown.
func NewTimeoutError(provider, message string) *Error {
	return NewError(ErrTimeout, message).WithProvider(provider)
}

// NewDownloadError reports that a finished artifact could not be fetched or saved.
func NewDownloadError(provider, message string) *Error {
	return NewError(ErrDownload, message).WithProvider(provider)
}

// NewInvalidRequestError reports a request rejected locally before any network call.
func NewInvalidRequestError(provider, message string) *Error {
	return NewError(ErrInvalidRequest, message).WithProvider(provider)
}

// AsError extracts the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether err carries any of the given codes.
func IsErrorCode(err error, codes ...ErrorCode) bool {
	code := GetErrorCode(err)
	if code == "" {
		return false
	}
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

// IsSkippable reports whether err is a configuration or credential problem discovered
// before any network call was made.
func IsSkippable(err error) bool {
	return IsErrorCode(err, ErrConfiguration, ErrCredential)
}
