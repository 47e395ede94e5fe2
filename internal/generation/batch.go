package generation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/blockvox/internal/blocks"
)

// ErrBatchRunning is returned by Run while another run is in progress. The
// second call has no effect.
var ErrBatchRunning = errors.New("batch generation already running")

// Progress is the observable state of a batch run. Done and Total always
// change together.
type Progress struct {
	Done    int  `json:"done"`
	Total   int  `json:"total"`
	Running bool `json:"running"`
}

// Summary tallies the outcomes of one run.
type Summary struct {
	Total   int           `json:"total"`
	Done    int           `json:"done"`
	Failed  int           `json:"failed"`
	Stale   int           `json:"stale"`
	Skipped int           `json:"skipped"`
	Took    time.Duration `json:"took_ns"`
}

// Orchestrator generates every pending block, strictly one after another.
type Orchestrator struct {
	store      *blocks.Store
	gen        *Generator
	onProgress func(Progress)

	mu       sync.Mutex
	progress Progress
}

// NewOrchestrator creates a batch runner. onProgress, if set, receives every
// progress change in order.
func NewOrchestrator(store *blocks.Store, gen *Generator, onProgress func(Progress)) *Orchestrator {
	return &Orchestrator{store: store, gen: gen, onProgress: onProgress}
}

// Progress returns the current progress pair.
func (o *Orchestrator) Progress() Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress
}

// Running reports whether a run is in progress.
func (o *Orchestrator) Running() bool {
	return o.Progress().Running
}

// Run snapshots the pending blocks and generates them in display order.
// Blocks added after the snapshot wait for the next run. A failing block is
// recorded and the run moves on. A cancelled ctx makes the remaining requests
// fail fast but every target is still visited.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	o.mu.Lock()
	if o.progress.Running {
		o.mu.Unlock()
		return Summary{}, ErrBatchRunning
	}
	targets := o.store.Snapshot().Pending()
	if len(targets) == 0 {
		o.mu.Unlock()
		return Summary{}, nil
	}
	o.progress = Progress{Total: len(targets), Running: true}
	o.mu.Unlock()
	o.publish()

	log.Info("batch generation started", "targets", len(targets))
	start := time.Now()
	summary := Summary{Total: len(targets)}

	for _, target := range targets {
		outcome, err := o.gen.Generate(ctx, target.ID)
		if err != nil {
			log.Error("batch target rejected", "block", target.ID, "err", err)
			outcome = OutcomeFailed
		}
		switch outcome {
		case OutcomeDone:
			summary.Done++
		case OutcomeFailed:
			summary.Failed++
		case OutcomeStale:
			summary.Stale++
		default:
			summary.Skipped++
		}

		o.mu.Lock()
		o.progress.Done++
		o.mu.Unlock()
		o.publish()
	}

	o.mu.Lock()
	o.progress.Running = false
	o.mu.Unlock()
	o.publish()

	summary.Took = time.Since(start)
	log.Info("batch generation finished",
		"done", summary.Done, "failed", summary.Failed, "stale", summary.Stale, "took", summary.Took)
	return summary, nil
}

func (o *Orchestrator) publish() {
	if o.onProgress != nil {
		o.onProgress(o.Progress())
	}
}
