package script

import (
	"github.com/dgnsrekt/blockvox/internal/blocks"
)

// Changes counts the edits Sync made.
type Changes struct {
	Added   int
	Updated int
	Removed int
}

// Any reports whether Sync touched the store.
func (c Changes) Any() bool {
	return c.Added+c.Updated+c.Removed > 0
}

// Sync makes the store's block list match s, position by position. Blocks
// whose text and voice are unchanged keep their audio; a changed title never
// discards audio.
func Sync(store *blocks.Store, s *Script) (Changes, error) {
	var c Changes
	current := store.Snapshot().Blocks

	for i, e := range s.Entries {
		voice := s.VoiceFor(e, store.DefaultVoice())
		if i >= len(current) {
			store.AddWith(blocks.AddBlock{Title: e.Title, Text: e.Text, Voice: voice})
			c.Added++
			continue
		}

		b := current[i]
		changed := false
		if b.Title != e.Title {
			if err := store.UpdateTitle(b.ID, e.Title); err != nil {
				return c, err
			}
			changed = true
		}
		if b.Text != e.Text {
			if err := store.UpdateText(b.ID, e.Text); err != nil {
				return c, err
			}
			changed = true
		}
		if b.Voice != voice {
			if err := store.UpdateVoice(b.ID, voice); err != nil {
				return c, err
			}
			changed = true
		}
		if changed {
			c.Updated++
		}
	}

	for _, b := range current[min(len(s.Entries), len(current)):] {
		if err := store.Delete(b.ID); err != nil {
			return c, err
		}
		c.Removed++
	}
	return c, nil
}
