// Package script loads block lists from markdown, YAML or plain text files
// and reconciles them with a block store.
package script

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgnsrekt/blockvox/internal/tts"
)

// Format is a script file format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatYAML     Format = "yaml"
	FormatText     Format = "text"
)

// ErrEmptyScript is returned when a script contains no blocks.
var ErrEmptyScript = errors.New("script contains no blocks")

// Entry is one block of a script.
type Entry struct {
	Title string `yaml:"title"`
	Text  string `yaml:"text"`
	Voice string `yaml:"voice,omitempty"`
}

// Script is a parsed script file.
type Script struct {
	// Voice applies to entries that name none. Empty means the store default.
	Voice   string  `yaml:"voice,omitempty"`
	Entries []Entry `yaml:"blocks"`
}

// FormatFor picks a format from a file extension. Unknown extensions are read
// as plain text.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return FormatMarkdown
	case ".yml", ".yaml":
		return FormatYAML
	default:
		return FormatText
	}
}

// Load reads and parses the script at path.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	s, err := Parse(FormatFor(path), data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return s, nil
}

// Parse decodes data in the given format and validates every voice.
func Parse(format Format, data []byte) (*Script, error) {
	var (
		s   *Script
		err error
	)
	switch format {
	case FormatMarkdown:
		s = parseMarkdown(data)
	case FormatYAML:
		s, err = parseYAML(data)
	case FormatText:
		s = parseText(data)
	default:
		return nil, fmt.Errorf("unsupported script format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if err := s.normalize(); err != nil {
		return nil, err
	}
	return s, nil
}

// normalize drops blank entries and canonicalizes voice names.
func (s *Script) normalize() error {
	if s.Voice != "" {
		v, err := tts.ValidateVoice(s.Voice)
		if err != nil {
			return err
		}
		s.Voice = v
	}

	kept := s.Entries[:0]
	for i, e := range s.Entries {
		e.Title = strings.TrimSpace(e.Title)
		e.Text = strings.TrimSpace(e.Text)
		if e.Text == "" && e.Title == "" {
			continue
		}
		if e.Voice != "" {
			v, err := tts.ValidateVoice(e.Voice)
			if err != nil {
				return fmt.Errorf("block %d: %w", i+1, err)
			}
			e.Voice = v
		}
		kept = append(kept, e)
	}
	s.Entries = kept

	if len(s.Entries) == 0 {
		return ErrEmptyScript
	}
	return nil
}

// VoiceFor resolves the voice of entry e.
func (s *Script) VoiceFor(e Entry, fallback string) string {
	switch {
	case e.Voice != "":
		return e.Voice
	case s.Voice != "":
		return s.Voice
	default:
		return fallback
	}
}

func parseText(data []byte) *Script {
	s := &Script{}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	for _, para := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}
		s.Entries = append(s.Entries, Entry{Text: para})
	}
	return s
}
