package tts

import (
	"errors"
	"fmt"
	"testing"
)

func TestTTSErrorIs(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"generation", GenerationError("boom", nil), ErrGeneration, true},
		{"rate limited is generation", NewTTSError(ErrorCodeRateLimited, "slow down", nil), ErrGeneration, true},
		{"encoding", EncodingError("bad pcm", nil), ErrEncoding, true},
		{"nothing to export", NothingToExportError(), ErrNothingToExport, true},
		{"empty payload", EmptyPayloadError("a.mp3"), ErrEmptyPayload, true},
		{"wrapped", fmt.Errorf("export: %w", EncodingError("x", nil)), ErrEncoding, true},
		{"mismatch", EncodingError("x", nil), ErrGeneration, false},
		{"same code", GenerationError("a", nil), &TTSError{Code: ErrorCodeGeneration}, true},
		{"invalid input is generation", NewTTSError(ErrorCodeInvalidInput, "too long", nil), ErrGeneration, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTTSErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := GenerationError("request failed", cause)

	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable through Unwrap")
	}
	if got, want := err.Error(), "request failed: connection reset"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"tts error uses message", GenerationError("API error: 500", errors.New("raw")), "API error: 500"},
		{"wrapped tts error", fmt.Errorf("block-1: %w", GenerationError("quota", nil)), "quota"},
		{"plain error", errors.New("dial tcp: timeout"), "dial tcp: timeout"},
		{"empty message falls back", errors.New(""), "speech generation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	if !GenerationError("x", nil).IsRetryable() {
		t.Error("generation failures should be retryable")
	}
	if EncodingError("x", nil).IsRetryable() {
		t.Error("encoding failures should not be retryable")
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("dial tcp: timeout"), false},
		{"wrapped generation", fmt.Errorf("block-1: %w", GenerationError("quota", nil)), true},
		{"rate limited", NewTTSError(ErrorCodeRateLimited, "slow down", nil), true},
		{"invalid input", NewTTSError(ErrorCodeInvalidInput, "too long", nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseEngine(t *testing.T) {
	tests := []struct {
		in      string
		want    EngineType
		wantErr error
	}{
		{"gemini", EngineGemini, nil},
		{"Google", EngineGemini, nil},
		{" mock ", EngineMock, nil},
		{"", EngineNone, ErrNoEngineConfigured},
		{"piper", EngineNone, ErrInvalidEngine},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEngine(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseEngine(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseEngine(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
