package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/blockvox/internal/audio"
	"github.com/dgnsrekt/blockvox/internal/blocks"
)

var (
	volume float64

	playCmd = &cobra.Command{
		Use:   "play SCRIPT [BLOCK]",
		Short: "Generate and play a script's blocks in order",
		Long: paragraph(fmt.Sprintf("\n%s every block of a script, or just block number BLOCK, generating any audio that is missing first.",
			keyword("Play"))),
		Example: paragraph("blockvox play talk.md\nblockvox play talk.md 3"),
		Args:    cobra.RangeArgs(1, 2),
		RunE:    runPlay,
	}
)

func init() {
	playCmd.Flags().Float64Var(&volume, "volume", 1.0, "playback volume between 0 and 1")
}

func runPlay(cmd *cobra.Command, args []string) error {
	mirrorLog()
	if volume < 0 || volume > 1 {
		return fmt.Errorf("volume must be between 0 and 1, got %.2f", volume)
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	if _, err := a.loadScript(args[0]); err != nil {
		return err
	}

	list := a.store.Snapshot().Blocks
	first, last := 0, len(list)-1
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 || n > len(list) {
			return fmt.Errorf("block must be a number between 1 and %d, got %q", len(list), args[1])
		}
		first, last = n-1, n-1
	}

	if first == last && len(list) > 1 {
		if b := list[first]; b.Pending() {
			if _, err := a.gen.Generate(ctx, b.ID); err != nil {
				return err
			}
		}
	} else if _, err := a.orch.Run(ctx); err != nil {
		return err
	}

	player := audio.NewPlayer(audio.AutoDeviceFactory(),
		audio.WithVolume(volume),
		audio.WithOnChange(playbackLogger()),
	)
	defer player.Close() //nolint:errcheck

	snap := a.store.Snapshot()
	for i := first; i <= last && i < len(snap.Blocks); i++ {
		b := snap.Blocks[i]
		if !playable(b, i) {
			continue
		}
		fmt.Printf("%s %s\n", keyword(fmt.Sprintf("▶ %02d", i+1)), blockLabel(b, i))
		if err := player.Play(ctx, b.ID, b.AudioData); err != nil {
			return fmt.Errorf("unable to play block %d: %w", i+1, err)
		}
		select {
		case <-player.Done():
		case <-ctx.Done():
			player.Stop()
			return nil
		}
	}
	return nil
}

// playbackLogger logs how long each block played. The player calls it from
// its own goroutines.
func playbackLogger() func(activeID string) {
	var (
		mu      sync.Mutex
		current string
		started time.Time
	)
	return func(activeID string) {
		mu.Lock()
		defer mu.Unlock()
		if activeID == current {
			return
		}
		if current != "" {
			log.Debug("playback ended", "block", current, "played", time.Since(started).Round(time.Millisecond))
		}
		current, started = activeID, time.Now()
		if activeID != "" {
			log.Debug("playback started", "block", activeID)
		}
	}
}

func playable(b blocks.Block, index int) bool {
	switch {
	case b.Status == blocks.StatusError:
		log.Warn("skipping failed block", "block", index+1, "err", b.Error)
		return false
	case !b.HasAudio():
		log.Debug("skipping block without audio", "block", index+1)
		return false
	}
	return true
}

func blockLabel(b blocks.Block, index int) string {
	if b.Title != "" {
		return fmt.Sprintf("%s (%s)", b.Title, b.Voice)
	}
	return fmt.Sprintf("block %d (%s)", index+1, b.Voice)
}
