package blocks

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownBlock is returned when an action names a missing block.
	ErrUnknownBlock = errors.New("unknown block")

	// ErrInvalidTransition is returned when a status change is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStaleRevision is returned when a generation result targets an older
	// revision of the block's text or voice.
	ErrStaleRevision = errors.New("stale block revision")

	// ErrInvalidAction is returned for malformed actions.
	ErrInvalidAction = errors.New("invalid action")
)

// fallbackError is stored when a failure arrives without a message.
const fallbackError = "speech generation failed"

// Action is one named mutation of the block list. The set is closed: only the
// types in this file implement it.
type Action interface {
	Name() string
	Target() string
	apply(blocks []Block) ([]Block, error)
}

// AddBlock appends a new block. Title and Text are optional initial values.
type AddBlock struct {
	Voice string
	Title string
	Text  string

	id string
}

// DeleteBlock removes a block.
type DeleteBlock struct{ ID string }

// UpdateTitle changes a block's title. Generated audio is kept.
type UpdateTitle struct{ ID, Title string }

// UpdateText changes a block's text and resets its generated state.
type UpdateText struct{ ID, Text string }

// UpdateVoice changes a block's voice and resets its generated state.
type UpdateVoice struct{ ID, Voice string }

// SetStatus moves a block to idle, generating or error. Revision, when
// non-zero, must match the block's current revision.
type SetStatus struct {
	ID        string
	Status    Status
	Error     string
	Retryable bool
	Revision  uint64
}

// SetAudio stores generated audio and marks the block done.
type SetAudio struct {
	ID        string
	AudioData string
	Revision  uint64
}

func (AddBlock) Name() string    { return "ADD_BLOCK" }
func (DeleteBlock) Name() string { return "DELETE_BLOCK" }
func (UpdateTitle) Name() string { return "UPDATE_TITLE" }
func (UpdateText) Name() string  { return "UPDATE_TEXT" }
func (UpdateVoice) Name() string { return "UPDATE_VOICE" }
func (SetStatus) Name() string   { return "SET_STATUS" }
func (SetAudio) Name() string    { return "SET_AUDIO" }

func (a AddBlock) Target() string    { return a.id }
func (a DeleteBlock) Target() string { return a.ID }
func (a UpdateTitle) Target() string { return a.ID }
func (a UpdateText) Target() string  { return a.ID }
func (a UpdateVoice) Target() string { return a.ID }
func (a SetStatus) Target() string   { return a.ID }
func (a SetAudio) Target() string    { return a.ID }

func (a AddBlock) apply(blocks []Block) ([]Block, error) {
	if a.id == "" {
		return nil, fmt.Errorf("%w: block id not assigned", ErrInvalidAction)
	}
	next := make([]Block, len(blocks), len(blocks)+1)
	copy(next, blocks)
	return append(next, Block{
		ID:       a.id,
		Title:    a.Title,
		Text:     a.Text,
		Voice:    a.Voice,
		Status:   StatusIdle,
		Revision: 1,
	}), nil
}

func (a DeleteBlock) apply(blocks []Block) ([]Block, error) {
	i := indexOf(blocks, a.ID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBlock, a.ID)
	}
	next := make([]Block, 0, len(blocks)-1)
	next = append(next, blocks[:i]...)
	return append(next, blocks[i+1:]...), nil
}

func (a UpdateTitle) apply(blocks []Block) ([]Block, error) {
	return update(blocks, a.ID, func(b *Block) error {
		b.Title = a.Title
		return nil
	})
}

func (a UpdateText) apply(blocks []Block) ([]Block, error) {
	return update(blocks, a.ID, func(b *Block) error {
		b.Text = a.Text
		b.reset()
		return nil
	})
}

func (a UpdateVoice) apply(blocks []Block) ([]Block, error) {
	return update(blocks, a.ID, func(b *Block) error {
		b.Voice = a.Voice
		b.reset()
		return nil
	})
}

func (a SetStatus) apply(blocks []Block) ([]Block, error) {
	if !a.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidAction, a.Status)
	}
	if a.Status == StatusDone {
		return nil, fmt.Errorf("%w: use SetAudio to complete a block", ErrInvalidAction)
	}
	return update(blocks, a.ID, func(b *Block) error {
		if err := checkTransition(*b, a.Status, a.Revision); err != nil {
			return err
		}
		b.Status = a.Status
		b.AudioData = ""
		b.Error = ""
		b.Retryable = false
		if a.Status == StatusError {
			b.Retryable = a.Retryable
			b.Error = a.Error
			if b.Error == "" {
				b.Error = fallbackError
			}
		}
		return nil
	})
}

func (a SetAudio) apply(blocks []Block) ([]Block, error) {
	if a.AudioData == "" {
		return nil, fmt.Errorf("%w: empty audio", ErrInvalidAction)
	}
	return update(blocks, a.ID, func(b *Block) error {
		if err := checkTransition(*b, StatusDone, a.Revision); err != nil {
			return err
		}
		b.Status = StatusDone
		b.AudioData = a.AudioData
		b.Error = ""
		b.Retryable = false
		return nil
	})
}

func checkTransition(b Block, to Status, revision uint64) error {
	if revision != 0 && revision != b.Revision {
		return fmt.Errorf("%w: %s at revision %d, result for %d", ErrStaleRevision, b.ID, b.Revision, revision)
	}
	if !CanTransition(b.Status, to) {
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, b.ID, b.Status, to)
	}
	return nil
}

// update copies blocks and applies fn to the copy of the block with id.
func update(blocks []Block, id string, fn func(*Block) error) ([]Block, error) {
	i := indexOf(blocks, id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBlock, id)
	}
	next := make([]Block, len(blocks))
	copy(next, blocks)
	if err := fn(&next[i]); err != nil {
		return nil, err
	}
	return next, nil
}

func indexOf(blocks []Block, id string) int {
	for i := range blocks {
		if blocks[i].ID == id {
			return i
		}
	}
	return -1
}
