package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"

	"github.com/dgnsrekt/blockvox/internal/blocks"
)

const (
	ellipsis    = "…"
	titleColumn = 18
	voiceColumn = 12
)

var (
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	titleStyle   = lipgloss.NewStyle().Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	statusColors = map[blocks.Status]lipgloss.Color{
		blocks.StatusIdle:       lipgloss.Color("#888888"),
		blocks.StatusGenerating: lipgloss.Color("#00AAFF"),
		blocks.StatusDone:       lipgloss.Color("#04B575"),
		blocks.StatusError:      lipgloss.Color("#FF5F5F"),
	}
)

// statusIcon returns the glyph for a block state. spin is shown while a
// request is in flight.
func statusIcon(s blocks.Status, spin string) string {
	switch s {
	case blocks.StatusGenerating:
		return spin
	case blocks.StatusDone:
		return "●"
	case blocks.StatusError:
		return "✗"
	default:
		return "○"
	}
}

// fit pads or truncates s to exactly w cells.
func fit(s string, w int) string {
	s = strings.Join(strings.Fields(s), " ")
	if runewidth.StringWidth(s) > w {
		s = truncate.StringWithTail(s, uint(w), ellipsis) //nolint:gosec
	}
	return runewidth.FillRight(s, w)
}

// renderRow draws one block on a single line of at most width cells.
func renderRow(b blocks.Block, index, width int, spin string, plain bool) string {
	label := b.Title
	if strings.TrimSpace(label) == "" {
		label = fmt.Sprintf("block %d", index+1)
	}

	icon := statusIcon(b.Status, spin)
	if !plain {
		icon = lipgloss.NewStyle().Foreground(statusColors[b.Status]).Render(icon)
	}

	head := fmt.Sprintf(" %02d %s %s %s ", index+1, icon, fit(label, titleColumn), fit(b.Voice, voiceColumn))
	rest := width - lipgloss.Width(head)
	if rest < 8 {
		return head
	}

	tail := b.Text
	if b.Status == blocks.StatusError {
		tail = "error: " + b.Error
	}
	tail = strings.TrimRight(fit(tail, rest), " ")
	if plain {
		return head + tail
	}
	if b.Status == blocks.StatusError {
		return head + errorStyle.Render(tail)
	}
	return head + dimStyle.Render(tail)
}
