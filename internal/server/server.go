// Package server exposes the block store, generation and export over a JSON
// HTTP API.
package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"github.com/dgnsrekt/blockvox/internal/blocks"
	"github.com/dgnsrekt/blockvox/internal/cache"
	"github.com/dgnsrekt/blockvox/internal/export"
	"github.com/dgnsrekt/blockvox/internal/generation"
	"github.com/dgnsrekt/blockvox/internal/metrics"
	"github.com/dgnsrekt/blockvox/internal/tts"
)

// Options are the collaborators the API serves.
type Options struct {
	Store        *blocks.Store
	Generator    *generation.Generator
	Orchestrator *generation.Orchestrator
	Exporter     *export.Exporter
	Engine       tts.EngineInfo
	ArchiveName  string
	// Metrics is optional; /metrics is only mounted when set.
	Metrics *metrics.Metrics
	// Cache is optional; /cache is only mounted when set.
	Cache *cache.MemoryCache
}

// Server owns the fiber app and the background batch runs it starts.
type Server struct {
	opts Options
	app  *fiber.App

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	runID   string
	lastRun *runResult
}

type runResult struct {
	ID      string             `json:"run_id"`
	Summary generation.Summary `json:"summary"`
}

// New builds the API.
func New(opts Options) *Server {
	if opts.ArchiveName == "" {
		opts.ArchiveName = export.DefaultArchiveName
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{opts: opts, ctx: ctx, cancel: cancel}

	s.app = fiber.New(fiber.Config{
		AppName:               "blockvox",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
		ReadTimeout:           30 * time.Second,
	})
	s.app.Use(recover.New())
	s.register()
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	log.Info("http api listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests, cancels running batches and waits for
// them to finish recording their outcomes.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}
	return err
}

func (s *Server) register() {
	s.app.Get("/healthz", s.health)
	s.app.Get("/voices", s.voices)
	s.app.Put("/voice", s.applyVoice)

	s.app.Get("/blocks", s.listBlocks)
	s.app.Post("/blocks", s.createBlock)
	s.app.Patch("/blocks/:id", s.updateBlock)
	s.app.Delete("/blocks/:id", s.deleteBlock)
	s.app.Post("/blocks/:id/generate", s.generateBlock)
	s.app.Get("/blocks/:id/audio.mp3", s.blockAudio)
	s.app.Get("/blocks/:id/history", s.blockHistory)

	s.app.Post("/batch", s.startBatch)
	s.app.Get("/batch", s.batchStatus)

	s.app.Get("/export.zip", s.exportArchive)

	if s.opts.Cache != nil {
		s.app.Get("/cache", s.cacheStats)
		s.app.Delete("/cache", s.clearCache)
	}
	if s.opts.Metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(s.opts.Metrics.Handler()))
	}
}

// beginRun reserves the batch slot. It returns false if a run started from
// this server is still in progress.
func (s *Server) beginRun() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runID != "" || s.opts.Orchestrator.Running() {
		return "", false
	}
	s.runID = uuid.NewString()
	return s.runID, true
}

func (s *Server) runBatch(id string) {
	defer s.wg.Done()

	summary, err := s.opts.Orchestrator.Run(s.ctx)
	if err != nil {
		log.Warn("batch run did not start", "run", id, "err", err)
	}

	s.mu.Lock()
	s.runID = ""
	s.lastRun = &runResult{ID: id, Summary: summary}
	s.mu.Unlock()
}
