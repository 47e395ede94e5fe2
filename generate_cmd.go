package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dgnsrekt/blockvox/internal/blocks"
	"github.com/dgnsrekt/blockvox/internal/export"
	"github.com/dgnsrekt/blockvox/internal/generation"
	"github.com/dgnsrekt/blockvox/internal/tts"
	"github.com/dgnsrekt/blockvox/ui"
)

const maxWidth = 120

var (
	outPath  string
	split    bool
	noTUI    bool
	voiceAll string

	generateCmd = &cobra.Command{
		Use:   "generate SCRIPT",
		Short: "Generate speech for every block of a script and export it",
		Long: paragraph(fmt.Sprintf("\n%s every block of a markdown, YAML or text script one at a time, then write the MP3s as a zip archive or as separate files.",
			keyword("Generate"))),
		Example: paragraph("blockvox generate talk.md\nblockvox generate talk.yml --split --out ./audio\nblockvox generate talk.md --voice-all Puck"),
		Args:    cobra.ExactArgs(1),
		RunE:    runGenerate,
	}
)

func init() {
	generateCmd.Flags().StringVarP(&outPath, "out", "o", "", "archive path, or directory with --split (default from export.output_dir)")
	generateCmd.Flags().BoolVar(&split, "split", false, "write one MP3 per block instead of a zip archive")
	generateCmd.Flags().BoolVar(&noTUI, "no-tui", false, "log progress instead of drawing it")
	generateCmd.Flags().StringVar(&voiceAll, "voice-all", "", "speak every block with this voice, overriding the script")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	if _, err := a.loadScript(args[0]); err != nil {
		return err
	}
	if err := applyVoiceAll(a, voiceAll); err != nil {
		return err
	}

	summary, err := runBatch(ctx, a, filepath.Base(args[0]), !noTUI)
	if interrupted(ctx, err) {
		printSummary(a.store.Snapshot(), summary)
		return errors.New("generation interrupted, nothing exported")
	}
	if err != nil {
		return err
	}
	printSummary(a.store.Snapshot(), summary)
	if verbose {
		printHistory(a.store.History())
	}

	if err := exportAudio(ctx, a); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d blocks failed", summary.Failed, summary.Total)
	}
	return nil
}

// interrupted reports whether the run was stopped by a signal or from the
// progress view. Either way nothing is exported.
func interrupted(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}

// applyVoiceAll overrides every block's voice when voice is set.
func applyVoiceAll(a *app, voice string) error {
	if voice == "" {
		return nil
	}
	canonical, err := tts.ValidateVoice(voice)
	if err != nil {
		return err
	}
	changed := a.store.ApplyVoiceToAll(canonical)
	log.Info("voice applied to all blocks", "voice", canonical, "changed", changed)
	return nil
}

// runBatch generates every pending block, drawing progress when stdout is a
// terminal and tui is set. Otherwise progress goes to the log.
func runBatch(ctx context.Context, a *app, title string, tui bool) (generation.Summary, error) {
	if !tui || !isTerminal(os.Stdout) {
		mirrorLog()
		return a.orch.Run(ctx)
	}

	uiCfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return generation.Summary{}, fmt.Errorf("error parsing config: %v", err)
	}
	uiCfg.Title = title
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil { //nolint:gosec
		uiCfg.Width = min(w, maxWidth)
	}
	return ui.RunBatch(ctx, uiCfg, a.store, a.orch)
}

func printSummary(snap blocks.Snapshot, s generation.Summary) {
	if s.Total == 0 {
		fmt.Println(dimStyle.Render("Nothing to generate."))
		return
	}
	fmt.Printf("Generated %d of %d blocks in %s\n", s.Done, s.Total, s.Took.Round(time.Millisecond))
	for i, b := range snap.Blocks {
		if b.Status != blocks.StatusError {
			continue
		}
		line := fmt.Sprintf("  %s block %d: %s", errorStyle.Render("✗"), i+1, b.Error)
		if b.Retryable {
			line += dimStyle.Render(" (retryable)")
		}
		fmt.Println(line)
	}
}

// printHistory dumps the store's state changes for debugging.
func printHistory(history []blocks.Transition) {
	fmt.Println(dimStyle.Render("State changes:"))
	for _, t := range history {
		change := string(t.To)
		if t.From != "" && t.From != t.To {
			change = fmt.Sprintf("%s -> %s", t.From, t.To)
		}
		fmt.Println(dimStyle.Render(fmt.Sprintf("  %4d %s %-13s %-8s %s",
			t.Seq, t.At.Format("15:04:05.000"), t.Action, t.BlockID, change)))
	}
}

func exportAudio(ctx context.Context, a *app) error {
	list := a.store.Snapshot().Blocks

	if split {
		dir := outPath
		if dir == "" {
			dir = a.cfg.Export.OutputDir
		}
		entries, err := a.exporter.Entries(ctx, list)
		if err != nil {
			return err
		}
		paths, err := export.SaveEntries(dir, entries)
		if err != nil {
			return err
		}
		for i, p := range paths {
			fmt.Printf("Wrote %s (%s)\n", p, humanize.Bytes(uint64(len(entries[i].Data))))
		}
		return nil
	}

	path := archivePath(a)
	data, err := a.exporter.Archive(ctx, list)
	if err != nil {
		return err
	}
	written, err := export.Save(path, data)
	if err != nil {
		return err
	}
	log.Debug("archive saved", "path", written)
	fmt.Printf("Wrote %s (%s)\n", written, humanize.Bytes(uint64(len(data))))
	return nil
}

func archivePath(a *app) string {
	switch {
	case outPath == "":
		return filepath.Join(a.cfg.Export.OutputDir, a.cfg.Export.ArchiveName)
	default:
		if st, err := os.Stat(outPath); err == nil && st.IsDir() {
			return filepath.Join(outPath, a.cfg.Export.ArchiveName)
		}
		return outPath
	}
}
