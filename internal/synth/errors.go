package synth

import (
	"errors"
	"fmt"
)

var (
	// ErrSynthesisUnavailable means no audio could be produced for a request.
	// The previously synthesized audio, if any, is still valid.
	ErrSynthesisUnavailable = errors.New("speech synthesis unavailable")

	// ErrEmptyText is returned for requests with nothing to say.
	ErrEmptyText = errors.New("text is empty")

	// ErrUnknownVoice is returned for a voice name not in the catalogue.
	ErrUnknownVoice = errors.New("unknown voice")

	// ErrMissingAPIKey is returned when the remote synthesizer has no key.
	ErrMissingAPIKey = errors.New("missing API key")
)

// ErrorCode classifies synthesis failures.
type ErrorCode string

const (
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorCodeAuth         ErrorCode = "AUTH"
	ErrorCodeRateLimited  ErrorCode = "RATE_LIMITED"
	ErrorCodeUnavailable  ErrorCode = "ENGINE_UNAVAILABLE"
	ErrorCodeTimeout      ErrorCode = "TIMEOUT"
	ErrorCodeAudioFormat  ErrorCode = "AUDIO_FORMAT"
	ErrorCodeNoAudio      ErrorCode = "NO_AUDIO"
)

// Error is a synthesis failure with a classification.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	Status  int // HTTP status, 0 if not applicable
}

// NewError creates a synthesis error.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether the same request may succeed later.
func (e *Error) IsRetryable() bool {
	switch e.Code {
	case ErrorCodeRateLimited, ErrorCodeUnavailable, ErrorCodeTimeout:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err is a retryable synthesis error.
func IsRetryable(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.IsRetryable()
}
