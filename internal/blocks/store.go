package blocks

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const defaultHistorySize = 256

// Snapshot is an immutable view of the block list. Callers must not modify
// Blocks; every dispatch produces a new slice.
type Snapshot struct {
	Version uint64
	Blocks  []Block
}

// Get returns the block with id.
func (s Snapshot) Get(id string) (Block, bool) {
	if i := indexOf(s.Blocks, id); i >= 0 {
		return s.Blocks[i], true
	}
	return Block{}, false
}

// Index returns the 0-based display position of id, or -1.
func (s Snapshot) Index(id string) int {
	return indexOf(s.Blocks, id)
}

// Pending returns the blocks a batch run would generate, in display order.
func (s Snapshot) Pending() []Block {
	var out []Block
	for _, b := range s.Blocks {
		if b.Pending() {
			out = append(out, b)
		}
	}
	return out
}

// HasAudio reports whether any block has generated audio.
func (s Snapshot) HasAudio() bool {
	for _, b := range s.Blocks {
		if b.HasAudio() {
			return true
		}
	}
	return false
}

// HasText reports whether any block has non-blank text.
func (s Snapshot) HasText() bool {
	for _, b := range s.Blocks {
		if b.HasText() {
			return true
		}
	}
	return false
}

// Transition records one applied action.
type Transition struct {
	Seq     uint64    `json:"seq"`
	Action  string    `json:"action"`
	BlockID string    `json:"block_id"`
	From    Status    `json:"from,omitempty"`
	To      Status    `json:"to,omitempty"`
	At      time.Time `json:"at"`
}

// Store applies actions one at a time to the current snapshot.
type Store struct {
	mu           sync.Mutex
	defaultVoice string
	snap         Snapshot
	nextID  uint64
	history []Transition
	histCap int
	subs    map[int]func(Snapshot)
	nextSub int

	// notifyMu keeps subscriber callbacks in dispatch order.
	notifyMu sync.Mutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithHistorySize bounds the transition log.
func WithHistorySize(n int) StoreOption {
	return func(s *Store) { s.histCap = n }
}

// NewStore creates an empty store. Blocks added without a voice use defaultVoice.
func NewStore(defaultVoice string, opts ...StoreOption) *Store {
	s := &Store{
		defaultVoice: defaultVoice,
		histCap:      defaultHistorySize,
		subs:         make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch applies a to the current snapshot and returns the new one. A
// rejected action leaves the store unchanged.
func (s *Store) Dispatch(a Action) (Snapshot, error) {
	s.mu.Lock()

	if add, ok := a.(AddBlock); ok {
		s.nextID++
		add.id = fmt.Sprintf("block-%d", s.nextID)
		if add.Voice == "" {
			add.Voice = s.defaultVoice
		}
		a = add
	}

	prev, _ := s.snap.Get(a.Target())
	blocks, err := a.apply(s.snap.Blocks)
	if err != nil {
		snap := s.snap
		s.mu.Unlock()
		log.Debug("action rejected", "action", a.Name(), "block", a.Target(), "err", err)
		return snap, err
	}

	s.snap = Snapshot{Version: s.snap.Version + 1, Blocks: blocks}
	next, _ := s.snap.Get(a.Target())
	s.record(Transition{
		Seq:     s.snap.Version,
		Action:  a.Name(),
		BlockID: a.Target(),
		From:    prev.Status,
		To:      next.Status,
		At:      time.Now(),
	})

	snap := s.snap
	subs := make([]func(Snapshot), 0, len(s.subs))
	for i := 0; i < s.nextSub; i++ {
		if fn, ok := s.subs[i]; ok {
			subs = append(subs, fn)
		}
	}

	s.notifyMu.Lock()
	s.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
	s.notifyMu.Unlock()

	return snap, nil
}

func (s *Store) record(t Transition) {
	if s.histCap <= 0 {
		return
	}
	if len(s.history) >= s.histCap {
		s.history = append(s.history[:0], s.history[1:]...)
	}
	s.history = append(s.history, t)
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Get returns the current state of one block.
func (s *Store) Get(id string) (Block, bool) {
	return s.Snapshot().Get(id)
}

// History returns the retained transitions, oldest first.
func (s *Store) History() []Transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Transition(nil), s.history...)
}

// Subscribe registers fn to receive every new snapshot and returns a function
// that removes it. fn runs synchronously after each dispatch and must not
// dispatch itself.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Add appends a block and returns its ID.
func (s *Store) Add(voice string) string {
	return s.AddWith(AddBlock{Voice: voice})
}

// AddWith appends a block with initial title and text and returns its ID.
func (s *Store) AddWith(a AddBlock) string {
	snap, err := s.Dispatch(a)
	if err != nil {
		return ""
	}
	return snap.Blocks[len(snap.Blocks)-1].ID
}

// Delete removes a block.
func (s *Store) Delete(id string) error {
	_, err := s.Dispatch(DeleteBlock{ID: id})
	return err
}

// UpdateTitle sets a block's title.
func (s *Store) UpdateTitle(id, title string) error {
	_, err := s.Dispatch(UpdateTitle{ID: id, Title: title})
	return err
}

// UpdateText sets a block's text and discards its audio.
func (s *Store) UpdateText(id, text string) error {
	_, err := s.Dispatch(UpdateText{ID: id, Text: text})
	return err
}

// UpdateVoice sets a block's voice and discards its audio.
func (s *Store) UpdateVoice(id, voice string) error {
	_, err := s.Dispatch(UpdateVoice{ID: id, Voice: voice})
	return err
}

// SetStatus moves a block to a non-done status.
func (s *Store) SetStatus(id string, status Status, msg string) error {
	_, err := s.Dispatch(SetStatus{ID: id, Status: status, Error: msg})
	return err
}

// SetAudio stores generated audio on a block.
func (s *Store) SetAudio(id, b64 string) error {
	_, err := s.Dispatch(SetAudio{ID: id, AudioData: b64})
	return err
}

// ApplyVoiceToAll makes voice the default for new blocks and sets it on every
// block whose voice differs. It returns the number of blocks changed.
func (s *Store) ApplyVoiceToAll(voice string) int {
	s.mu.Lock()
	s.defaultVoice = voice
	s.mu.Unlock()

	changed := 0
	for _, b := range s.Snapshot().Blocks {
		if b.Voice == voice {
			continue
		}
		if err := s.UpdateVoice(b.ID, voice); err == nil {
			changed++
		}
	}
	return changed
}

// PendingCount returns the number of blocks with text and no audio.
func (s *Store) PendingCount() int {
	return len(s.Snapshot().Pending())
}

// DefaultVoice returns the voice used for blocks added without one.
func (s *Store) DefaultVoice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaultVoice
}
