package engines

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgnsrekt/blockvox/internal/pcm"
	"github.com/dgnsrekt/blockvox/internal/tts"
)

func TestMockEngineGeneratesTone(t *testing.T) {
	m := NewMockEngine(MockConfig{Duration: 100 * time.Millisecond})

	b64, err := m.GenerateSpeech(context.Background(), "hello", "Kore")
	if err != nil {
		t.Fatalf("GenerateSpeech() error = %v", err)
	}
	samples, err := pcm.DecodeSamples(b64)
	if err != nil {
		t.Fatalf("payload does not decode: %v", err)
	}
	if len(samples) != 2400 {
		t.Errorf("samples = %d, want 2400", len(samples))
	}

	again, _ := m.GenerateSpeech(context.Background(), "hello", "Kore")
	if again != b64 {
		t.Error("same voice produced different audio")
	}
	other, _ := m.GenerateSpeech(context.Background(), "hello", "Puck")
	if other == b64 {
		t.Error("different voices produced identical audio")
	}

	if m.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", m.Calls())
	}
}

func TestMockEngineFailures(t *testing.T) {
	m := NewMockEngine(MockConfig{FailureText: "FAIL"})
	boom := errors.New("boom")
	m.FailWhen(func(text, voice string) error {
		if voice == "Fenrir" {
			return boom
		}
		return nil
	})

	tests := []struct {
		name    string
		text    string
		voice   string
		wantErr error
	}{
		{"ok", "fine", "Kore", nil},
		{"failure text", "please FAIL", "Kore", tts.ErrGeneration},
		{"fail func", "fine", "Fenrir", boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.GenerateSpeech(context.Background(), tt.text, tt.voice)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMockEngineCancelled(t *testing.T) {
	m := NewMockEngine(MockConfig{Delay: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.GenerateSpeech(ctx, "x", "Kore"); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
