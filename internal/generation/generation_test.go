package generation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/blockvox/internal/blocks"
	"github.com/dgnsrekt/blockvox/internal/tts"
	"github.com/dgnsrekt/blockvox/internal/tts/engines"
)

// gatedEngine blocks every request until release is closed.
type gatedEngine struct {
	started chan string
	release chan struct{}
}

func newGatedEngine() *gatedEngine {
	return &gatedEngine{started: make(chan string, 16), release: make(chan struct{})}
}

func (g *gatedEngine) GenerateSpeech(ctx context.Context, text, voice string) (string, error) {
	g.started <- text
	select {
	case <-g.release:
		return "AAAA", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *gatedEngine) Info() tts.EngineInfo { return tts.EngineInfo{Name: "gated"} }

func addText(s *blocks.Store, text string) string {
	return s.AddWith(blocks.AddBlock{Text: text})
}

func TestGenerateSuccess(t *testing.T) {
	store := blocks.NewStore("Kore")
	id := addText(store, "hello")

	var observed []Outcome
	gen := NewGenerator(store, engines.NewMockEngine(engines.MockConfig{}), func(o Outcome, _ time.Duration) {
		observed = append(observed, o)
	})

	outcome, err := gen.Generate(context.Background(), id)
	if err != nil || outcome != OutcomeDone {
		t.Fatalf("Generate() = %v, %v, want done", outcome, err)
	}

	b, _ := store.Get(id)
	if b.Status != blocks.StatusDone || !b.HasAudio() || b.Error != "" {
		t.Errorf("block = %+v, want done with audio", b)
	}
	if len(observed) != 1 || observed[0] != OutcomeDone {
		t.Errorf("observed = %v", observed)
	}
}

func TestGenerateFailureRecordsMessage(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		want  string
		retry bool
	}{
		{"service message", tts.GenerationError("API key not valid.", nil), "API key not valid.", true},
		{"invalid input", tts.NewTTSError(tts.ErrorCodeInvalidInput, "text too long", nil), "text too long", false},
		{"plain error", errors.New("network down"), "network down", false},
		{"no message", errors.New(""), "speech generation failed", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := blocks.NewStore("Kore")
			id := addText(store, "hello")
			mock := engines.NewMockEngine(engines.MockConfig{})
			mock.FailWhen(func(string, string) error { return tt.err })

			outcome, err := NewGenerator(store, mock, nil).Generate(context.Background(), id)
			if err != nil || outcome != OutcomeFailed {
				t.Fatalf("Generate() = %v, %v, want failed", outcome, err)
			}

			b, _ := store.Get(id)
			if b.Status != blocks.StatusError || b.Error != tt.want || b.HasAudio() {
				t.Errorf("block = %+v, want error %q", b, tt.want)
			}
			if b.Retryable != tt.retry {
				t.Errorf("Retryable = %v, want %v", b.Retryable, tt.retry)
			}
		})
	}
}

func TestGenerateBlankTextIsNoop(t *testing.T) {
	store := blocks.NewStore("Kore")
	id := addText(store, "  \n\t ")
	mock := engines.NewMockEngine(engines.MockConfig{})

	outcome, err := NewGenerator(store, mock, nil).Generate(context.Background(), id)
	if err != nil || outcome != OutcomeSkipped {
		t.Fatalf("Generate() = %v, %v, want skipped", outcome, err)
	}
	if mock.Calls() != 0 {
		t.Error("blank block reached the service")
	}
	if b, _ := store.Get(id); b.Status != blocks.StatusIdle {
		t.Errorf("status = %s, want idle", b.Status)
	}
}

func TestGenerateRetryAfterError(t *testing.T) {
	store := blocks.NewStore("Kore")
	id := addText(store, "hello")
	mock := engines.NewMockEngine(engines.MockConfig{})
	fail := true
	mock.FailWhen(func(string, string) error {
		if fail {
			return errors.New("flaky")
		}
		return nil
	})
	gen := NewGenerator(store, mock, nil)

	_, _ = gen.Generate(context.Background(), id)
	fail = false
	outcome, _ := gen.Generate(context.Background(), id)

	b, _ := store.Get(id)
	if outcome != OutcomeDone || b.Status != blocks.StatusDone || b.Error != "" {
		t.Errorf("after retry = %v %+v", outcome, b)
	}
}

func TestGenerateDiscardsResultAfterEdit(t *testing.T) {
	store := blocks.NewStore("Kore")
	id := addText(store, "first")
	engine := newGatedEngine()
	gen := NewGenerator(store, engine, nil)

	result := make(chan Outcome, 1)
	go func() {
		o, _ := gen.Generate(context.Background(), id)
		result <- o
	}()

	<-engine.started
	if err := store.UpdateText(id, "second"); err != nil {
		t.Fatal(err)
	}
	close(engine.release)

	if o := <-result; o != OutcomeStale {
		t.Errorf("outcome = %v, want stale", o)
	}
	b, _ := store.Get(id)
	if b.HasAudio() || b.Status != blocks.StatusIdle || b.Text != "second" {
		t.Errorf("block = %+v, want idle without audio", b)
	}
}

func TestGenerateDiscardsResultAfterDelete(t *testing.T) {
	store := blocks.NewStore("Kore")
	id := addText(store, "first")
	engine := newGatedEngine()
	gen := NewGenerator(store, engine, nil)

	result := make(chan Outcome, 1)
	go func() {
		o, _ := gen.Generate(context.Background(), id)
		result <- o
	}()

	<-engine.started
	_ = store.Delete(id)
	close(engine.release)

	if o := <-result; o != OutcomeStale {
		t.Errorf("outcome = %v, want stale", o)
	}
}

func TestBatchMixedOutcomes(t *testing.T) {
	store := blocks.NewStore("Kore")
	a := addText(store, "A")
	b := addText(store, "B")
	c := addText(store, "C")

	mock := engines.NewMockEngine(engines.MockConfig{})
	mock.FailWhen(func(text, _ string) error {
		if text == "B" {
			return tts.GenerationError("quota exceeded", nil)
		}
		return nil
	})

	var mu sync.Mutex
	var seen []Progress
	orch := NewOrchestrator(store, NewGenerator(store, mock, nil), func(p Progress) {
		mu.Lock()
		seen = append(seen, p)
		mu.Unlock()
	})

	summary, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := map[string]blocks.Status{a: blocks.StatusDone, b: blocks.StatusError, c: blocks.StatusDone}
	for id, status := range want {
		blk, _ := store.Get(id)
		if blk.Status != status {
			t.Errorf("%s status = %s, want %s", id, blk.Status, status)
		}
	}
	if blk, _ := store.Get(b); blk.Error != "quota exceeded" {
		t.Errorf("B error = %q", blk.Error)
	}

	if p := orch.Progress(); p.Done != 3 || p.Total != 3 || p.Running {
		t.Errorf("final progress = %+v, want 3/3 not running", p)
	}
	if summary.Done != 2 || summary.Failed != 1 || summary.Total != 3 {
		t.Errorf("summary = %+v", summary)
	}

	// start, three increments, stop
	if len(seen) != 5 {
		t.Fatalf("progress events = %d, want 5: %+v", len(seen), seen)
	}
	for i := 1; i <= 3; i++ {
		if seen[i].Done != i || seen[i].Total != 3 || !seen[i].Running {
			t.Errorf("event %d = %+v", i, seen[i])
		}
	}
	if seen[4].Running {
		t.Error("last event still running")
	}
}

func TestBatchOnlyPendingTargets(t *testing.T) {
	store := blocks.NewStore("Kore")
	addText(store, "one")
	addText(store, "")
	addText(store, "   ")
	done := addText(store, "already")
	_ = store.SetStatus(done, blocks.StatusGenerating, "")
	_ = store.SetAudio(done, "AAAA")
	addText(store, "two")

	mock := engines.NewMockEngine(engines.MockConfig{})
	orch := NewOrchestrator(store, NewGenerator(store, mock, nil), nil)

	if _, err := orch.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if mock.Calls() != 2 {
		t.Errorf("calls = %d, want 2", mock.Calls())
	}
	texts := mock.Texts()
	if len(texts) != 2 || texts[0] != "one" || texts[1] != "two" {
		t.Errorf("order = %v, want [one two]", texts)
	}
	if p := orch.Progress(); p.Total != 2 || p.Done != 2 {
		t.Errorf("progress = %+v", p)
	}
}

func TestBatchNoTargets(t *testing.T) {
	store := blocks.NewStore("Kore")
	addText(store, "")

	events := 0
	orch := NewOrchestrator(store, NewGenerator(store, engines.NewMockEngine(engines.MockConfig{}), nil), func(Progress) {
		events++
	})

	summary, err := orch.Run(context.Background())
	if err != nil || summary.Total != 0 {
		t.Fatalf("Run() = %+v, %v", summary, err)
	}
	if events != 0 {
		t.Errorf("progress published %d times for an empty run", events)
	}
	if orch.Running() {
		t.Error("running flag set for an empty run")
	}
}

func TestBatchSequentialAndReentrant(t *testing.T) {
	store := blocks.NewStore("Kore")
	for _, text := range []string{"a", "b", "c"} {
		addText(store, text)
	}

	mock := engines.NewMockEngine(engines.MockConfig{Delay: 10 * time.Millisecond})
	orch := NewOrchestrator(store, NewGenerator(store, mock, nil), nil)

	first := make(chan error, 1)
	go func() {
		_, err := orch.Run(context.Background())
		first <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !orch.Running() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if _, err := orch.Run(context.Background()); !errors.Is(err, ErrBatchRunning) {
		t.Errorf("second Run() error = %v, want ErrBatchRunning", err)
	}

	if err := <-first; err != nil {
		t.Fatal(err)
	}
	if mock.Calls() != 3 {
		t.Errorf("calls = %d, want 3", mock.Calls())
	}
	if mock.MaxInFlight() != 1 {
		t.Errorf("max concurrent requests = %d, want 1", mock.MaxInFlight())
	}
}

func TestBatchSnapshotIgnoresLateBlocks(t *testing.T) {
	store := blocks.NewStore("Kore")
	addText(store, "first")
	engine := newGatedEngine()
	orch := NewOrchestrator(store, NewGenerator(store, engine, nil), nil)

	done := make(chan struct{})
	go func() {
		_, _ = orch.Run(context.Background())
		close(done)
	}()

	<-engine.started
	late := addText(store, "late")
	close(engine.release)
	<-done

	if b, _ := store.Get(late); b.Status != blocks.StatusIdle {
		t.Errorf("late block status = %s, want idle", b.Status)
	}
	if p := orch.Progress(); p.Total != 1 {
		t.Errorf("total = %d, want 1", p.Total)
	}
}

func TestBatchCancelledStillCompletes(t *testing.T) {
	store := blocks.NewStore("Kore")
	ids := []string{addText(store, "a"), addText(store, "b")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := NewOrchestrator(store, NewGenerator(store, engines.NewMockEngine(engines.MockConfig{}), nil), nil)
	summary, err := orch.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Failed != 2 {
		t.Errorf("failed = %d, want 2", summary.Failed)
	}
	for _, id := range ids {
		if b, _ := store.Get(id); b.Status != blocks.StatusError {
			t.Errorf("%s status = %s, want error", id, b.Status)
		}
	}
	if p := orch.Progress(); p.Done != 2 || p.Running {
		t.Errorf("progress = %+v", p)
	}
}
