package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/blockvox/internal/tts"
)

var voicesCmd = &cobra.Command{
	Use:     "voices [QUERY]",
	Short:   "List the available voices",
	Long:    paragraph(fmt.Sprintf("\n%s the voice catalog, fuzzy-filtered by QUERY when given.", keyword("List"))),
	Example: paragraph("blockvox voices\nblockvox voices bright"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		voices := tts.SearchVoices(query)
		if len(voices) == 0 {
			return fmt.Errorf("no voice matches %q", query)
		}

		out, err := renderVoices(voices, cfg.DefaultVoice, voiceStyle())
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

// voiceStyle picks a glamour style for the terminal background, or notty
// when stdout is redirected.
func voiceStyle() string {
	if !isTerminal(os.Stdout) {
		return styles.NoTTYStyle
	}
	if termenv.HasDarkBackground() {
		return styles.DarkStyle
	}
	return styles.LightStyle
}

func voicesMarkdown(voices []tts.Voice, defaultVoice string) string {
	var b strings.Builder
	b.WriteString("| Voice | Character |\n|---|---|\n")
	for _, v := range voices {
		name := v.Name
		if v.Name == defaultVoice {
			name = "**" + name + "** (default)"
		}
		fmt.Fprintf(&b, "| %s | %s |\n", name, v.Description)
	}
	return b.String()
}

func renderVoices(voices []tts.Voice, defaultVoice, style string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithColorProfile(lipgloss.ColorProfile()),
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return "", fmt.Errorf("unable to create renderer: %w", err)
	}
	out, err := r.Render(voicesMarkdown(voices, defaultVoice))
	if err != nil {
		return "", fmt.Errorf("unable to render markdown: %w", err)
	}
	return out, nil
}
