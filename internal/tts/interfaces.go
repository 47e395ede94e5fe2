package tts

import (
	"context"
	"fmt"
	"strings"
)

// SpeechGenerator converts text to speech through a remote service.
// Implementations return the raw 16-bit 24 kHz mono PCM payload base64-encoded,
// exactly as the service delivered it.
type SpeechGenerator interface {
	// GenerateSpeech synthesizes text with the named voice. A response without
	// audio is an ErrGeneration failure whose message includes any text the
	// service sent instead.
	GenerateSpeech(ctx context.Context, text, voice string) (string, error)

	// Info describes the generator.
	Info() EngineInfo
}

// EngineInfo describes a speech generator.
type EngineInfo struct {
	Name     string
	Model    string
	IsOnline bool
}

// EngineType names a generator implementation.
type EngineType string

const (
	EngineGemini EngineType = "gemini"
	EngineMock   EngineType = "mock"
	EngineNone   EngineType = ""
)

// ParseEngine normalises an engine name. Accepted aliases: "google" for gemini.
func ParseEngine(name string) (EngineType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return EngineNone, ErrNoEngineConfigured
	case "gemini", "google":
		return EngineGemini, nil
	case "mock":
		return EngineMock, nil
	default:
		return EngineNone, fmt.Errorf("%w: %s (supported: gemini, mock)", ErrInvalidEngine, name)
	}
}
