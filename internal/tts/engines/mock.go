package engines

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgnsrekt/blockvox/internal/pcm"
	"github.com/dgnsrekt/blockvox/internal/tts"
)

// MockConfig holds configuration for the mock engine.
type MockConfig struct {
	// Delay simulates network latency per request.
	Delay time.Duration

	// FailureText makes requests whose text contains it fail.
	FailureText string

	// Duration is the length of the generated tone (defaults to 300ms).
	Duration time.Duration
}

// MockEngine generates a short tone per request without network access.
// The pitch depends on the voice so different voices produce different audio.
type MockEngine struct {
	config MockConfig

	calls       atomic.Int64
	inFlight    atomic.Int64
	maxInFlight atomic.Int64

	mu      sync.Mutex
	texts   []string
	failFns []func(text, voice string) error
}

// NewMockEngine creates a mock engine.
func NewMockEngine(config MockConfig) *MockEngine {
	if config.Duration == 0 {
		config.Duration = 300 * time.Millisecond
	}
	return &MockEngine{config: config}
}

// FailWhen registers fn to decide per request whether to fail. A non-nil
// return is returned to the caller as is.
func (m *MockEngine) FailWhen(fn func(text, voice string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failFns = append(m.failFns, fn)
}

// GenerateSpeech returns a base64 tone after the configured delay.
func (m *MockEngine) GenerateSpeech(ctx context.Context, text, voice string) (string, error) {
	m.calls.Add(1)
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		peak := m.maxInFlight.Load()
		if n <= peak || m.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	m.mu.Lock()
	m.texts = append(m.texts, text)
	fns := append([]func(string, string) error(nil), m.failFns...)
	m.mu.Unlock()

	if m.config.Delay > 0 {
		select {
		case <-time.After(m.config.Delay):
		case <-ctx.Done():
			return "", tts.GenerationError("request cancelled", ctx.Err())
		}
	} else if err := ctx.Err(); err != nil {
		return "", tts.GenerationError("request cancelled", err)
	}

	if m.config.FailureText != "" && strings.Contains(text, m.config.FailureText) {
		return "", tts.GenerationError("mock failure requested", nil)
	}
	for _, fn := range fns {
		if err := fn(text, voice); err != nil {
			return "", err
		}
	}

	return pcm.EncodeBase64(pcm.Tone(voicePitch(voice), m.config.Duration, 0.3)), nil
}

// voicePitch maps a voice name onto 220..660 Hz.
func voicePitch(voice string) float64 {
	h := fnv.New32a()
	h.Write([]byte(voice))
	return 220 + float64(h.Sum32()%441)
}

// Calls returns the number of requests received.
func (m *MockEngine) Calls() int {
	return int(m.calls.Load())
}

// MaxInFlight returns the highest number of concurrent requests observed.
func (m *MockEngine) MaxInFlight() int {
	return int(m.maxInFlight.Load())
}

// Texts returns the request texts in arrival order.
func (m *MockEngine) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// Info returns engine metadata.
func (m *MockEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{Name: string(tts.EngineMock), Model: "tone"}
}

var _ tts.SpeechGenerator = (*MockEngine)(nil)
