// Package pcm handles the raw 24 kHz mono s16le audio the speech service
// returns as base64.
package pcm

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// Fixed audio profile returned by the speech service.
const (
	SampleRate     = 24000
	Channels       = 1
	BitDepth       = 16
	BytesPerSample = BitDepth / 8 * Channels
)

var (
	// ErrEmptyPayload is returned when the base64 payload is empty.
	ErrEmptyPayload = errors.New("pcm payload is empty")

	// ErrNoSamples is returned when the payload decodes to less than one sample.
	ErrNoSamples = errors.New("pcm payload contains no samples")
)

// Format describes a PCM stream.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// DefaultFormat returns the 24 kHz mono 16-bit profile.
func DefaultFormat() Format {
	return Format{
		SampleRate: SampleRate,
		Channels:   Channels,
		BitDepth:   BitDepth,
	}
}

// Duration returns the play time of n samples.
func (f Format) Duration(samples int) time.Duration {
	if f.SampleRate == 0 || f.Channels == 0 {
		return 0
	}
	frames := samples / f.Channels
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// DecodeBase64 decodes a base64 payload into raw bytes truncated to an even
// length. A trailing odd byte is dropped.
func DecodeBase64(b64 string) ([]byte, error) {
	if b64 == "" {
		return nil, ErrEmptyPayload
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return raw[:len(raw)-len(raw)%BytesPerSample], nil
}

// Samples reinterprets little-endian bytes as signed 16-bit samples.
// The caller is expected to pass an even-length slice.
func Samples(raw []byte) []int16 {
	out := make([]int16, len(raw)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
	}
	return out
}

// DecodeSamples decodes a base64 payload straight to samples.
func DecodeSamples(b64 string) ([]int16, error) {
	raw, err := DecodeBase64(b64)
	if err != nil {
		return nil, err
	}
	samples := Samples(raw)
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	return samples, nil
}

// Bytes serialises samples as little-endian bytes.
func Bytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

// EncodeBase64 is the inverse of DecodeSamples.
func EncodeBase64(samples []int16) string {
	return base64.StdEncoding.EncodeToString(Bytes(samples))
}

// Tone generates a sine wave at freq Hz for d. Amplitude is a fraction of full scale.
func Tone(freq float64, d time.Duration, amplitude float64) []int16 {
	n := int(d.Seconds() * SampleRate)
	out := make([]int16, n)
	for i := range out {
		v := amplitude * math.Sin(2*math.Pi*freq*float64(i)/SampleRate)
		out[i] = int16(v * math.MaxInt16)
	}
	return out
}
