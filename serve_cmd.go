package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dgnsrekt/blockvox/internal/server"
)

const shutdownTimeout = 10 * time.Second

var (
	serveAddr   string
	serveScript string

	serveCmd = &cobra.Command{
		Use:     "serve",
		Short:   "Serve the block editor over HTTP",
		Long:    paragraph(fmt.Sprintf("\n%s a JSON API for editing blocks, generating speech and downloading MP3s, with Prometheus metrics on /metrics.", keyword("Serve"))),
		Example: paragraph("blockvox serve\nblockvox serve --addr :8740 --script talk.md"),
		Args:    cobra.NoArgs,
		RunE:    runServe,
	}
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	serveCmd.Flags().StringVar(&serveScript, "script", "", "preload blocks from a script")
}

func runServe(cmd *cobra.Command, _ []string) error {
	mirrorLog()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	if serveScript != "" {
		if _, err := a.loadScript(serveScript); err != nil {
			return err
		}
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	srv := server.New(server.Options{
		Store:        a.store,
		Generator:    a.gen,
		Orchestrator: a.orch,
		Exporter:     a.exporter,
		Engine:       a.engine.Info(),
		ArchiveName:  cfg.Export.ArchiveName,
		Metrics:      a.metrics,
		Cache:        a.cache,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Listen(addr)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
