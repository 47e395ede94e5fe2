package tts

import (
	"errors"
	"fmt"
)

// Failure kinds surfaced to callers. Match with errors.Is.
var (
	// ErrGeneration indicates the remote call failed or returned no audio.
	ErrGeneration = errors.New("speech generation failed")

	// ErrEncoding indicates malformed or empty PCM, a missing encoder, or empty output.
	ErrEncoding = errors.New("mp3 encoding failed")

	// ErrNothingToExport indicates no block carries generated audio.
	ErrNothingToExport = errors.New("no generated audio to export")

	// ErrEmptyPayload indicates an attempt to save zero bytes.
	ErrEmptyPayload = errors.New("refusing to save an empty payload")

	// ErrNoEngineConfigured indicates no speech engine was selected.
	ErrNoEngineConfigured = errors.New("no speech engine configured")

	// ErrInvalidEngine indicates an unknown engine name.
	ErrInvalidEngine = errors.New("invalid speech engine")

	// ErrUnknownVoice indicates a voice outside the catalog.
	ErrUnknownVoice = errors.New("unknown voice")
)

// ErrorCode identifies the failure kind of a TTSError.
type ErrorCode string

const (
	ErrorCodeGeneration      ErrorCode = "GENERATION_FAILED"
	ErrorCodeEncoding        ErrorCode = "ENCODING_FAILED"
	ErrorCodeNothingToExport ErrorCode = "NOTHING_TO_EXPORT"
	ErrorCodeEmptyPayload    ErrorCode = "EMPTY_PAYLOAD"
	ErrorCodeRateLimited     ErrorCode = "RATE_LIMITED"
	ErrorCodeInvalidInput    ErrorCode = "INVALID_INPUT"
)

var sentinels = map[ErrorCode]error{
	ErrorCodeGeneration:      ErrGeneration,
	ErrorCodeRateLimited:     ErrGeneration,
	ErrorCodeEncoding:        ErrEncoding,
	ErrorCodeNothingToExport: ErrNothingToExport,
	ErrorCodeEmptyPayload:    ErrEmptyPayload,
	ErrorCodeInvalidInput:    ErrGeneration,
}

// TTSError carries a failure kind, a human-readable message and an optional cause.
type TTSError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// NewTTSError creates a new error with an empty context.
func NewTTSError(code ErrorCode, message string, cause error) *TTSError {
	return &TTSError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// GenerationError builds an ErrGeneration failure.
func GenerationError(message string, cause error) *TTSError {
	return NewTTSError(ErrorCodeGeneration, message, cause)
}

// EncodingError builds an ErrEncoding failure.
func EncodingError(message string, cause error) *TTSError {
	return NewTTSError(ErrorCodeEncoding, message, cause)
}

// NothingToExportError builds an ErrNothingToExport failure.
func NothingToExportError() *TTSError {
	return NewTTSError(ErrorCodeNothingToExport, "no block has generated audio", nil)
}

// EmptyPayloadError builds an ErrEmptyPayload failure for the named file.
func EmptyPayloadError(filename string) *TTSError {
	return NewTTSError(ErrorCodeEmptyPayload, "nothing to write", nil).WithContext("file", filename)
}

// Error implements the error interface.
func (e *TTSError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *TTSError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel for the error's code.
func (e *TTSError) Is(target error) bool {
	if t, ok := target.(*TTSError); ok {
		return t.Code == e.Code
	}
	s, ok := sentinels[e.Code]
	return ok && s == target
}

// WithContext adds context to the error.
func (e *TTSError) WithContext(key string, value interface{}) *TTSError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// IsRetryable reports whether re-invoking the triggering action may succeed.
func (e *TTSError) IsRetryable() bool {
	switch e.Code {
	case ErrorCodeGeneration, ErrorCodeRateLimited:
		return true
	default:
		return false
	}
}

// Retryable reports whether err carries a TTSError that may clear on retry.
func Retryable(err error) bool {
	var te *TTSError
	return errors.As(err, &te) && te.IsRetryable()
}

// UserMessage returns the message shown next to a failed block. It prefers the
// outermost TTSError message and falls back to the error text, then to a
// generic phrase.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var te *TTSError
	if errors.As(err, &te) && te.Message != "" {
		return te.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return ErrGeneration.Error()
}
