package script

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/blockvox/internal/blocks"
	"github.com/dgnsrekt/blockvox/internal/tts"
)

const markdownScript = `# Episode 12

Welcome back to the show.

## Intro

Today we talk about *audio* encoding
across two lines.

` + "```go\nfmt.Println(\"skipped\")\n```" + `

## Topics

- frames
- bitrates

## Outro
Thanks for listening.
`

func TestParseMarkdown(t *testing.T) {
	s, err := Parse(FormatMarkdown, []byte(markdownScript))
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{Text: "Welcome back to the show."},
		{Title: "Intro", Text: "Today we talk about audio encoding across two lines."},
		{Title: "Topics", Text: "frames\n\nbitrates"},
		{Title: "Outro", Text: "Thanks for listening."},
	}, s.Entries)
}

func TestParseYAML(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    *Script
		wantErr bool
	}{
		{
			name: "document",
			data: "voice: puck\nblocks:\n  - title: One\n    text: first\n  - text: second\n    voice: Zephyr\n",
			want: &Script{Voice: "Puck", Entries: []Entry{
				{Title: "One", Text: "first"},
				{Text: "second", Voice: "Zephyr"},
			}},
		},
		{
			name: "bare list",
			data: "- text: only\n",
			want: &Script{Entries: []Entry{{Text: "only"}}},
		},
		{
			name:    "unknown field",
			data:    "voice: Kore\nblock:\n  - text: typo\n",
			wantErr: true,
		},
		{
			name:    "scalar",
			data:    "just a string",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse(FormatYAML, []byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s)
		})
	}
}

func TestParseText(t *testing.T) {
	s, err := Parse(FormatText, []byte("first paragraph\nstill first\r\n\r\nsecond\n\n\n\nthird\n"))
	require.NoError(t, err)
	require.Len(t, s.Entries, 3)
	assert.Equal(t, "first paragraph\nstill first", s.Entries[0].Text)
	assert.Equal(t, "third", s.Entries[2].Text)
}

func TestParseRejects(t *testing.T) {
	_, err := Parse(FormatText, []byte("\n\n   \n"))
	assert.ErrorIs(t, err, ErrEmptyScript)

	_, err = Parse(FormatYAML, []byte("blocks:\n  - text: hi\n    voice: Korr\n"))
	assert.ErrorIs(t, err, tts.ErrUnknownVoice)

	_, err = Parse(Format("rtf"), []byte("x"))
	assert.Error(t, err)
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatMarkdown, FormatFor("a/b.MD"))
	assert.Equal(t, FormatYAML, FormatFor("script.yml"))
	assert.Equal(t, FormatYAML, FormatFor("script.yaml"))
	assert.Equal(t, FormatText, FormatFor("notes.txt"))
	assert.Equal(t, FormatText, FormatFor("README"))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.md")
	require.NoError(t, os.WriteFile(path, []byte("## One\n\nHello.\n"), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Title: "One", Text: "Hello."}}, s.Entries)

	_, err = Load(filepath.Join(t.TempDir(), "missing.md"))
	assert.Error(t, err)
}

func TestSync(t *testing.T) {
	store := blocks.NewStore("Kore")

	first := &Script{Entries: []Entry{
		{Title: "A", Text: "alpha"},
		{Title: "B", Text: "beta"},
		{Title: "C", Text: "gamma"},
	}}
	c, err := Sync(store, first)
	require.NoError(t, err)
	assert.Equal(t, Changes{Added: 3}, c)

	snap := store.Snapshot()
	for _, b := range snap.Blocks {
		require.NoError(t, store.SetStatus(b.ID, blocks.StatusGenerating, ""))
		require.NoError(t, store.SetAudio(b.ID, "AAAA"))
	}

	second := &Script{Entries: []Entry{
		{Title: "A renamed", Text: "alpha"},
		{Title: "B", Text: "beta, revised"},
	}}
	c, err = Sync(store, second)
	require.NoError(t, err)
	assert.Equal(t, Changes{Updated: 2, Removed: 1}, c)

	got := store.Snapshot().Blocks
	require.Len(t, got, 2)
	assert.Equal(t, "A renamed", got[0].Title)
	assert.True(t, got[0].HasAudio(), "title edits keep audio")
	assert.False(t, got[1].HasAudio(), "text edits discard audio")
	assert.Equal(t, 1, store.PendingCount())

	c, err = Sync(store, second)
	require.NoError(t, err)
	assert.False(t, c.Any())

	c, err = Sync(store, &Script{Voice: "Puck", Entries: second.Entries})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Updated)
	assert.Equal(t, 2, store.PendingCount())
}
