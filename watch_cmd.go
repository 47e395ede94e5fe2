package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/blockvox/internal/tts"
)

const watchDebounce = 250 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch SCRIPT",
	Short: "Regenerate changed blocks whenever a script is saved",
	Long: paragraph(fmt.Sprintf("\n%s a script and regenerate only the blocks whose text or voice changed. The archive is rewritten after every run.",
		keyword("Watch"))),
	Example: paragraph("blockvox watch talk.md --out talk.zip"),
	Args:    cobra.ExactArgs(1),
	RunE:    runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&outPath, "out", "o", "", "archive path, or directory with --split (default from export.output_dir)")
	watchCmd.Flags().BoolVar(&split, "split", false, "write one MP3 per block instead of a zip archive")
}

func runWatch(cmd *cobra.Command, args []string) error {
	mirrorLog()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("unable to get absolute path: %w", err)
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to create watcher: %w", err)
	}
	defer watcher.Close() //nolint:errcheck

	// Editors often replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("unable to watch %s: %w", filepath.Dir(path), err)
	}

	reload(ctx, a, path)
	log.Info("watching script", "path", path)

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			debounce = time.After(watchDebounce)

		case <-debounce:
			debounce = nil
			reload(ctx, a, path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", "err", err)
		}
	}
}

// reload applies the script and regenerates what it invalidated. Failures
// are logged so the watch keeps running.
func reload(ctx context.Context, a *app, path string) {
	changes, err := a.loadScript(path)
	if err != nil {
		log.Error("unable to load script", "path", path, "err", err)
		return
	}
	if !changes.Any() && a.store.PendingCount() == 0 {
		log.Debug("script unchanged")
		return
	}

	summary, err := a.orch.Run(ctx)
	if err != nil {
		log.Error("batch failed", "err", err)
		return
	}
	log.Info("batch finished", "done", summary.Done, "failed", summary.Failed, "stale", summary.Stale, "took", summary.Took)
	if ctx.Err() != nil {
		return
	}

	if err := exportAudio(ctx, a); err != nil {
		log.Error("export failed", "err", tts.UserMessage(err))
	}
}
