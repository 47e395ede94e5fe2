package tts

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// DefaultVoice is selected for new blocks when nothing else is configured.
const DefaultVoice = "Kore"

// Voice is one entry of the prebuilt voice catalog.
type Voice struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Voices is the static catalog offered for selection.
var Voices = []Voice{
	{"Zephyr", "Bright"},
	{"Puck", "Upbeat"},
	{"Charon", "Informative"},
	{"Kore", "Firm"},
	{"Fenrir", "Excitable"},
	{"Leda", "Youthful"},
	{"Orus", "Firm"},
	{"Aoede", "Breezy"},
	{"Callirrhoe", "Easy-going"},
	{"Autonoe", "Bright"},
	{"Enceladus", "Breathy"},
	{"Iapetus", "Clear"},
	{"Umbriel", "Easy-going"},
	{"Algieba", "Smooth"},
	{"Despina", "Smooth"},
	{"Erinome", "Clear"},
	{"Algenib", "Gravelly"},
	{"Rasalgethi", "Informative"},
	{"Laomedeia", "Upbeat"},
	{"Achernar", "Soft"},
	{"Alnilam", "Firm"},
	{"Schedar", "Even"},
	{"Gacrux", "Mature"},
	{"Pulcherrima", "Forward"},
	{"Achird", "Friendly"},
	{"Zubenelgenubi", "Casual"},
	{"Vindemiatrix", "Gentle"},
	{"Sadachbia", "Lively"},
	{"Sadaltager", "Knowledgeable"},
	{"Sulafat", "Warm"},
}

// voiceSource adapts the catalog for fuzzy matching on "name description".
type voiceSource []Voice

func (v voiceSource) String(i int) string { return v[i].Name + " " + v[i].Description }
func (v voiceSource) Len() int            { return len(v) }

// LookupVoice returns the catalog entry matching name case-insensitively.
func LookupVoice(name string) (Voice, bool) {
	for _, v := range Voices {
		if strings.EqualFold(v.Name, name) {
			return v, true
		}
	}
	return Voice{}, false
}

// SearchVoices returns catalog entries ranked by fuzzy match against query.
// An empty query returns the whole catalog.
func SearchVoices(query string) []Voice {
	if strings.TrimSpace(query) == "" {
		return append([]Voice(nil), Voices...)
	}
	matches := fuzzy.FindFrom(query, voiceSource(Voices))
	out := make([]Voice, 0, len(matches))
	for _, m := range matches {
		out = append(out, Voices[m.Index])
	}
	return out
}

// ValidateVoice resolves name to its canonical catalog spelling. Unknown names
// fail with ErrUnknownVoice and up to three suggestions.
func ValidateVoice(name string) (string, error) {
	if v, ok := LookupVoice(name); ok {
		return v.Name, nil
	}
	suggestions := SearchVoices(name)
	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	if len(suggestions) == 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownVoice, name)
	}
	names := make([]string, len(suggestions))
	for i, s := range suggestions {
		names[i] = s.Name
	}
	return "", fmt.Errorf("%w: %q (did you mean %s?)", ErrUnknownVoice, name, strings.Join(names, ", "))
}
