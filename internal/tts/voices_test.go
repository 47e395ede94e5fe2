package tts

import (
	"errors"
	"strings"
	"testing"
)

func TestLookupVoice(t *testing.T) {
	v, ok := LookupVoice("kore")
	if !ok {
		t.Fatal("expected kore to resolve")
	}
	if v.Name != "Kore" {
		t.Errorf("Name = %q, want Kore", v.Name)
	}
	if _, ok := LookupVoice("nobody"); ok {
		t.Error("unexpected match for unknown voice")
	}
}

func TestDefaultVoiceInCatalog(t *testing.T) {
	if _, ok := LookupVoice(DefaultVoice); !ok {
		t.Errorf("default voice %q missing from catalog", DefaultVoice)
	}
}

func TestSearchVoices(t *testing.T) {
	if got := SearchVoices(""); len(got) != len(Voices) {
		t.Errorf("empty query returned %d voices, want %d", len(got), len(Voices))
	}

	got := SearchVoices("puck")
	if len(got) == 0 || got[0].Name != "Puck" {
		t.Errorf("SearchVoices(puck) = %v, want Puck first", got)
	}
}

func TestValidateVoice(t *testing.T) {
	name, err := ValidateVoice("CHARON")
	if err != nil {
		t.Fatalf("ValidateVoice() error = %v", err)
	}
	if name != "Charon" {
		t.Errorf("name = %q, want Charon", name)
	}

	_, err = ValidateVoice("Chron")
	if !errors.Is(err, ErrUnknownVoice) {
		t.Fatalf("error = %v, want ErrUnknownVoice", err)
	}
	if !strings.Contains(err.Error(), "Charon") {
		t.Errorf("expected suggestion in %q", err.Error())
	}
}
