// Package generation drives blocks through speech generation, one block at a
// time or as a sequential batch.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/blockvox/internal/blocks"
	"github.com/dgnsrekt/blockvox/internal/tts"
)

// Outcome is the result of one generation attempt.
type Outcome int

const (
	// OutcomeSkipped means nothing was requested: blank text, an unknown
	// block, or a request already in flight.
	OutcomeSkipped Outcome = iota
	OutcomeDone
	OutcomeFailed
	// OutcomeStale means the block was edited or deleted while the request
	// was in flight and the result was discarded.
	OutcomeStale
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeDone:
		return "done"
	case OutcomeFailed:
		return "failed"
	case OutcomeStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Observer receives the outcome and latency of every remote call.
type Observer func(outcome Outcome, took time.Duration)

// Generator runs the idle -> generating -> done/error lifecycle of a block.
type Generator struct {
	store   *blocks.Store
	speech  tts.SpeechGenerator
	observe Observer
}

// NewGenerator creates a generator writing results into store.
func NewGenerator(store *blocks.Store, speech tts.SpeechGenerator, observe Observer) *Generator {
	return &Generator{store: store, speech: speech, observe: observe}
}

// Generate requests speech for block id. Failures are recorded on the block,
// never returned; the returned error only reports store rejections that
// indicate a bug.
func (g *Generator) Generate(ctx context.Context, id string) (Outcome, error) {
	b, ok := g.store.Get(id)
	if !ok || !b.HasText() || b.Status.IsActive() {
		return OutcomeSkipped, nil
	}

	if _, err := g.store.Dispatch(blocks.SetStatus{
		ID:       id,
		Status:   blocks.StatusGenerating,
		Revision: b.Revision,
	}); err != nil {
		if errors.Is(err, blocks.ErrStaleRevision) || errors.Is(err, blocks.ErrUnknownBlock) {
			return OutcomeStale, nil
		}
		return OutcomeSkipped, fmt.Errorf("start generation for %s: %w", id, err)
	}

	start := time.Now()
	audio, err := g.speech.GenerateSpeech(ctx, b.Text, b.Voice)
	took := time.Since(start)

	var action blocks.Action
	outcome := OutcomeDone
	if err != nil {
		outcome = OutcomeFailed
		retry := tts.Retryable(err)
		action = blocks.SetStatus{
			ID:        id,
			Status:    blocks.StatusError,
			Error:     tts.UserMessage(err),
			Retryable: retry,
			Revision:  b.Revision,
		}
		log.Warn("generation failed", "block", id, "voice", b.Voice, "retryable", retry, "err", err)
	} else {
		action = blocks.SetAudio{ID: id, AudioData: audio, Revision: b.Revision}
		log.Debug("generation finished", "block", id, "voice", b.Voice, "bytes", len(audio), "took", took)
	}

	if _, derr := g.store.Dispatch(action); derr != nil {
		if errors.Is(derr, blocks.ErrStaleRevision) || errors.Is(derr, blocks.ErrUnknownBlock) {
			log.Debug("discarding stale generation result", "block", id)
			outcome = OutcomeStale
		} else {
			return OutcomeSkipped, fmt.Errorf("record generation for %s: %w", id, derr)
		}
	}

	if g.observe != nil {
		g.observe(outcome, took)
	}
	return outcome, nil
}
