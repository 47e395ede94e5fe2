// Package ui renders batch generation progress in the terminal.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dgnsrekt/blockvox/internal/blocks"
	"github.com/dgnsrekt/blockvox/internal/generation"
)

const defaultWidth = 80

type (
	snapshotMsg blocks.Snapshot
	finishedMsg struct {
		summary generation.Summary
		err     error
	}
)

type model struct {
	cfg      Config
	blocks   []blocks.Block
	progress generation.Progress
	poll     func() generation.Progress
	cancel   context.CancelFunc

	spinner spinner.Model
	bar     progress.Model
	width   int

	finished *finishedMsg
	stopping bool
}

func newModel(cfg Config, snap blocks.Snapshot, poll func() generation.Progress, cancel context.CancelFunc) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(statusColors[blocks.StatusGenerating])

	width := cfg.Width
	if width <= 0 {
		width = defaultWidth
	}
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = max(10, width-16)

	return model{
		cfg:     cfg,
		blocks:  snap.Blocks,
		poll:    poll,
		cancel:  cancel,
		spinner: sp,
		bar:     bar,
		width:   width,
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if m.finished != nil {
				return m, tea.Quit
			}
			if !m.stopping {
				m.stopping = true
				if m.cancel != nil {
					m.cancel()
				}
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if m.cfg.Width > 0 && m.cfg.Width < m.width {
			m.width = m.cfg.Width
		}
		m.bar.Width = max(10, m.width-16)
		return m, nil

	case snapshotMsg:
		m.blocks = msg.Blocks
		return m, nil

	case finishedMsg:
		m.finished = &msg
		m.progress.Running = false
		if msg.summary.Total > 0 {
			m.progress.Done, m.progress.Total = msg.summary.Total, msg.summary.Total
		}
		return m, tea.Quit

	case spinner.TickMsg:
		if m.poll != nil {
			m.progress = m.poll()
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) percent() float64 {
	if m.progress.Total == 0 {
		return 0
	}
	return float64(m.progress.Done) / float64(m.progress.Total)
}

func (m model) View() string {
	var b strings.Builder

	title := m.cfg.Title
	if title == "" {
		title = "blockvox"
	}
	state := "waiting"
	switch {
	case m.finished != nil:
		state = "finished"
	case m.stopping:
		state = "stopping"
	case m.progress.Running:
		state = "generating"
	}
	fmt.Fprintf(&b, "\n %s %s %s\n\n", m.header(title), dimStyle.Render(state),
		dimStyle.Render(fmt.Sprintf("%d/%d", m.progress.Done, m.progress.Total)))

	if m.cfg.NoColor {
		fmt.Fprintf(&b, " [%s]\n\n", plainBar(m.percent(), m.bar.Width))
	} else {
		fmt.Fprintf(&b, " %s\n\n", m.bar.ViewAs(m.percent()))
	}

	spin := m.spinner.View()
	for i, blk := range m.blocks {
		row := renderRow(blk, i, m.width, spin, m.cfg.NoColor)
		if m.cfg.ShowRevisions {
			row += dimStyle.Render(fmt.Sprintf(" r%d", blk.Revision))
		}
		b.WriteString(row + "\n")
	}

	b.WriteString("\n")
	if m.finished != nil {
		b.WriteString(" " + summaryLine(m.finished.summary) + "\n")
	} else {
		b.WriteString(dimStyle.Render(" q: stop") + "\n")
	}
	return b.String()
}

func (m model) header(title string) string {
	if m.cfg.NoColor {
		return title
	}
	return titleStyle.Render(title)
}

func plainBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	return strings.Repeat("#", filled) + strings.Repeat("-", width-filled)
}

func summaryLine(s generation.Summary) string {
	line := fmt.Sprintf("%d generated, %d failed", s.Done, s.Failed)
	if s.Stale > 0 {
		line += fmt.Sprintf(", %d discarded after edits", s.Stale)
	}
	return line + fmt.Sprintf(" in %s", s.Took.Round(100*time.Millisecond))
}

// RunBatch runs orch while drawing its progress. Quitting early cancels the
// run; the remaining blocks are still visited and fail fast, and RunBatch
// reports context.Canceled alongside the partial summary.
func RunBatch(ctx context.Context, cfg Config, store *blocks.Store, orch *generation.Orchestrator) (generation.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newModel(cfg, store.Snapshot(), orch.Progress, cancel))
	unsubscribe := store.Subscribe(func(s blocks.Snapshot) { p.Send(snapshotMsg(s)) })
	defer unsubscribe()

	done := make(chan finishedMsg, 1)
	go func() {
		summary, err := orch.Run(ctx)
		msg := finishedMsg{summary: summary, err: err}
		done <- msg
		p.Send(msg)
	}()

	final, err := p.Run()
	if err != nil {
		cancel()
		<-done
		return generation.Summary{}, fmt.Errorf("unable to run tui program: %w", err)
	}

	res := <-done
	return res.summary, runErr(final, res.err)
}

// runErr is the error RunBatch reports for the program's final model. A run
// the user stopped is cancelled even when the orchestrator itself finished.
func runErr(final tea.Model, err error) error {
	if err != nil {
		return err
	}
	if m, ok := final.(model); ok && m.stopping {
		return context.Canceled
	}
	return nil
}
