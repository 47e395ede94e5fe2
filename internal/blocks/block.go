// Package blocks holds the text block model and the store that serializes
// every mutation of the block list.
package blocks

import (
	"fmt"
	"strings"
)

// Status is a block's generation state.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusGenerating Status = "generating"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Block is one text segment with its voice and generated audio.
type Block struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
	Text  string `json:"text" yaml:"text"`
	Voice string `json:"voice" yaml:"voice"`

	Status    Status `json:"status" yaml:"status"`
	AudioData string `json:"-" yaml:"-"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
	// Retryable marks an error another attempt may clear.
	Retryable bool `json:"retryable,omitempty" yaml:"-"`

	// Revision increments on every text or voice edit. Generation results
	// tagged with an older revision are discarded.
	Revision uint64 `json:"revision" yaml:"-"`
}

// HasAudio reports whether the block carries a generated artifact.
func (b Block) HasAudio() bool {
	return b.AudioData != ""
}

// HasText reports whether the block has non-blank text.
func (b Block) HasText() bool {
	return strings.TrimSpace(b.Text) != ""
}

// Pending reports whether a batch run would generate this block.
func (b Block) Pending() bool {
	return b.HasText() && !b.HasAudio()
}

// Check verifies the audio and error fields agree with the status.
func (b Block) Check() error {
	if b.AudioData != "" && b.Status != StatusDone {
		return fmt.Errorf("block %s has audio in status %s", b.ID, b.Status)
	}
	if b.Status == StatusDone && b.AudioData == "" {
		return fmt.Errorf("block %s is done without audio", b.ID)
	}
	if (b.Error != "") != (b.Status == StatusError) {
		return fmt.Errorf("block %s has error %q in status %s", b.ID, b.Error, b.Status)
	}
	if b.Retryable && b.Status != StatusError {
		return fmt.Errorf("block %s is retryable in status %s", b.ID, b.Status)
	}
	return nil
}

// reset clears generated state after an edit.
func (b *Block) reset() {
	b.AudioData = ""
	b.Error = ""
	b.Retryable = false
	b.Status = StatusIdle
	b.Revision++
}
