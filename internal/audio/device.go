package audio

import (
	"errors"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

var (
	// ErrDeviceUnavailable is returned when no output device can be opened.
	ErrDeviceUnavailable = errors.New("audio device unavailable")

	// ErrDeviceClosed is returned when a stream is requested from a closed device.
	ErrDeviceClosed = errors.New("audio device closed")
)

// DeviceState reports whether a device can render audio.
type DeviceState int

const (
	DeviceRunning DeviceState = iota
	DeviceSuspended
	DeviceClosed
)

// String returns the string representation of the state.
func (s DeviceState) String() string {
	switch s {
	case DeviceRunning:
		return "running"
	case DeviceSuspended:
		return "suspended"
	case DeviceClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Device is an audio output the player renders streams to.
type Device interface {
	// NewStream creates a stream reading float32 LE samples from r.
	NewStream(r io.Reader) (Stream, error)
	// Resume brings a suspended device back to running.
	Resume() error
	// Close tears the device down. A closed device is replaced, not reused.
	Close() error
	State() DeviceState
}

// Stream is one playing clip.
type Stream interface {
	Play()
	Pause()
	IsPlaying() bool
	SetVolume(volume float64)
	Close() error
}

// DeviceFactory opens a new device.
type DeviceFactory func() (Device, error)

// IsCI detects if we're running in a CI environment or mock audio was requested.
func IsCI() bool {
	ciVars := []string{
		"CI",
		"CONTINUOUS_INTEGRATION",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"BUILDKITE",
	}
	for _, envVar := range ciVars {
		if val := os.Getenv(envVar); val != "" && val != "false" {
			log.Debug("CI environment detected", "variable", envVar)
			return true
		}
	}
	return os.Getenv("BLOCKVOX_MOCK_AUDIO") == "true"
}

// AutoDeviceFactory returns the oto factory, or a silent mock in CI.
func AutoDeviceFactory() DeviceFactory {
	if IsCI() {
		log.Info("Using mock audio device", "reason", "CI environment")
		return func() (Device, error) { return NewMockDevice(), nil }
	}
	return NewOtoDevice
}
