package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	runewidth "github.com/mattn/go-runewidth"

	"github.com/dgnsrekt/blockvox/internal/blocks"
	"github.com/dgnsrekt/blockvox/internal/generation"
)

func TestFit(t *testing.T) {
	tests := []struct {
		name string
		in   string
		w    int
	}{
		{"short", "abc", 8},
		{"exact", "abcdefgh", 8},
		{"long", "abcdefghijkl", 8},
		{"wide runes", "日本語のテキストです", 8},
		{"whitespace collapsed", "a \n\t b", 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fit(tt.in, tt.w)
			if w := runewidth.StringWidth(got); w != tt.w {
				t.Errorf("fit(%q) = %q, width %d, want %d", tt.in, got, w, tt.w)
			}
		})
	}

	if got := fit("abcdefghijkl", 8); !strings.HasSuffix(got, ellipsis) {
		t.Errorf("truncated value %q should end with an ellipsis", got)
	}
}

func TestStatusIcon(t *testing.T) {
	if got := statusIcon(blocks.StatusGenerating, "*"); got != "*" {
		t.Errorf("generating icon = %q, want spinner frame", got)
	}
	seen := map[string]bool{}
	for _, s := range []blocks.Status{blocks.StatusIdle, blocks.StatusDone, blocks.StatusError} {
		icon := statusIcon(s, "*")
		if seen[icon] {
			t.Errorf("icon %q reused for %s", icon, s)
		}
		seen[icon] = true
	}
}

func TestRenderRow(t *testing.T) {
	tests := []struct {
		name  string
		block blocks.Block
		want  []string
	}{
		{
			name:  "titled",
			block: blocks.Block{Title: "Intro", Text: "hello there", Voice: "Puck", Status: blocks.StatusDone},
			want:  []string{"03", "Intro", "Puck", "hello there"},
		},
		{
			name:  "untitled",
			block: blocks.Block{Text: "body", Voice: "Kore"},
			want:  []string{"block 3", "Kore"},
		},
		{
			name:  "failed",
			block: blocks.Block{Text: "body", Voice: "Kore", Status: blocks.StatusError, Error: "quota exceeded"},
			want:  []string{"error: quota exceeded"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := renderRow(tt.block, 2, 80, "*", true)
			for _, w := range tt.want {
				if !strings.Contains(row, w) {
					t.Errorf("row %q missing %q", row, w)
				}
			}
			if w := lipgloss.Width(row); w > 80 {
				t.Errorf("row width %d exceeds 80", w)
			}
		})
	}
}

func TestRenderRowAlignment(t *testing.T) {
	a := renderRow(blocks.Block{Title: "日本語のタイトルがとても長い", Text: "x", Voice: "Puck"}, 0, 60, "*", true)
	b := renderRow(blocks.Block{Title: "short", Text: "x", Voice: "Achernar"}, 1, 60, "*", true)

	ia := strings.Index(a, "Puck")
	ib := strings.Index(b, "Achernar")
	if ia < 0 || ib < 0 {
		t.Fatalf("voices missing from rows %q / %q", a, b)
	}
	if wa, wb := runewidth.StringWidth(a[:ia]), runewidth.StringWidth(b[:ib]); wa != wb {
		t.Errorf("voice column at cell %d and %d, want aligned", wa, wb)
	}
}

func TestRenderRowNarrow(t *testing.T) {
	row := renderRow(blocks.Block{Title: "t", Text: "some text", Voice: "Puck"}, 0, 20, "*", true)
	if strings.Contains(row, "some text") {
		t.Errorf("narrow row %q should drop the text column", row)
	}
}

func testModel(poll func() generation.Progress, cancel func()) model {
	snap := blocks.Snapshot{Blocks: []blocks.Block{
		{ID: "block-1", Title: "One", Text: "a", Voice: "Kore"},
		{ID: "block-2", Title: "Two", Text: "b", Voice: "Puck"},
	}}
	return newModel(Config{Title: "demo", Width: 80, NoColor: true}, snap, poll, cancel)
}

func TestModelPollsProgressOnTick(t *testing.T) {
	m := testModel(func() generation.Progress {
		return generation.Progress{Done: 1, Total: 2, Running: true}
	}, nil)

	next, cmd := m.Update(m.spinner.Tick())
	m = next.(model)
	if cmd == nil {
		t.Error("tick should schedule the next tick")
	}
	if m.progress.Done != 1 || m.progress.Total != 2 {
		t.Errorf("progress = %+v, want 1/2", m.progress)
	}

	view := m.View()
	for _, want := range []string{"demo", "generating", "1/2", "One", "Two", "[####"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModelSnapshot(t *testing.T) {
	m := testModel(nil, nil)
	next, _ := m.Update(snapshotMsg(blocks.Snapshot{Blocks: []blocks.Block{
		{ID: "block-1", Title: "Renamed", Text: "a", Voice: "Kore", Status: blocks.StatusDone},
	}}))
	m = next.(model)

	view := m.View()
	if !strings.Contains(view, "Renamed") || strings.Contains(view, "Two") {
		t.Errorf("view should reflect the latest snapshot:\n%s", view)
	}
}

func TestModelQuitCancelsRun(t *testing.T) {
	cancelled := 0
	m := testModel(nil, func() { cancelled++ })

	key := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}
	next, cmd := m.Update(key)
	m = next.(model)
	if cmd != nil {
		t.Error("quitting mid-run should wait for the run to finish")
	}
	if cancelled != 1 || !m.stopping {
		t.Fatalf("cancelled = %d, stopping = %v", cancelled, m.stopping)
	}
	if !strings.Contains(m.View(), "stopping") {
		t.Error("view should show the stopping state")
	}

	next, _ = m.Update(key)
	m = next.(model)
	if cancelled != 1 {
		t.Errorf("second key press cancelled again")
	}

	next, cmd = m.Update(finishedMsg{summary: generation.Summary{Total: 2, Done: 1, Failed: 1, Took: 1500 * time.Millisecond}})
	m = next.(model)
	if cmd == nil {
		t.Fatal("finishing should quit the program")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("finishing should return tea.Quit")
	}
	view := m.View()
	if !strings.Contains(view, "1 generated, 1 failed in 1.5s") {
		t.Errorf("view missing summary:\n%s", view)
	}
}

func TestRunErrAfterStop(t *testing.T) {
	finished := finishedMsg{summary: generation.Summary{Total: 3, Done: 1, Failed: 2}}
	boom := errors.New("boom")

	tests := []struct {
		name string
		keys []string
		err  error
		want error
	}{
		{"completed", nil, nil, nil},
		{"q", []string{"q"}, nil, context.Canceled},
		{"ctrl+c", []string{"ctrl+c"}, nil, context.Canceled},
		{"esc", []string{"esc"}, nil, context.Canceled},
		{"run error wins", []string{"q"}, boom, boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cancelled := false
			var m tea.Model = testModel(nil, func() { cancelled = true })
			for _, k := range tt.keys {
				var msg tea.KeyMsg
				switch k {
				case "ctrl+c":
					msg = tea.KeyMsg{Type: tea.KeyCtrlC}
				case "esc":
					msg = tea.KeyMsg{Type: tea.KeyEsc}
				default:
					msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
				}
				m, _ = m.Update(msg)
			}
			m, _ = m.Update(finished)

			if len(tt.keys) > 0 && !cancelled {
				t.Error("stopping should cancel the run")
			}
			if got := runErr(m, tt.err); !errors.Is(got, tt.want) {
				t.Errorf("runErr() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestModelWindowSize(t *testing.T) {
	m := testModel(nil, nil)
	m.cfg.Width = 0
	next, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 20})
	m = next.(model)
	if m.width != 40 {
		t.Errorf("width = %d, want 40", m.width)
	}
	for _, line := range strings.Split(m.View(), "\n") {
		if w := lipgloss.Width(line); w > 40 {
			t.Errorf("line %q is %d cells wide", line, w)
		}
	}
}

func TestSummaryLine(t *testing.T) {
	got := summaryLine(generation.Summary{Done: 2, Failed: 0, Stale: 1, Took: 2 * time.Second})
	want := "2 generated, 0 failed, 1 discarded after edits in 2s"
	if got != want {
		t.Errorf("summaryLine = %q, want %q", got, want)
	}
}
