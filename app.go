package main

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/blockvox/internal/blocks"
	"github.com/dgnsrekt/blockvox/internal/cache"
	"github.com/dgnsrekt/blockvox/internal/config"
	"github.com/dgnsrekt/blockvox/internal/encoder"
	"github.com/dgnsrekt/blockvox/internal/export"
	"github.com/dgnsrekt/blockvox/internal/generation"
	"github.com/dgnsrekt/blockvox/internal/metrics"
	"github.com/dgnsrekt/blockvox/internal/script"
	"github.com/dgnsrekt/blockvox/internal/tts"
	"github.com/dgnsrekt/blockvox/internal/tts/engines"
)

// app wires one block store to its engine, generators and exporter.
type app struct {
	cfg      config.Config
	cache    *cache.MemoryCache
	metrics  *metrics.Metrics
	engine   tts.SpeechGenerator
	store    *blocks.Store
	gen      *generation.Generator
	orch     *generation.Orchestrator
	encoder  *encoder.Encoder
	exporter *export.Exporter
}

func newApp(cfg config.Config) (*app, error) {
	a := &app{
		cfg:     cfg,
		cache:   cache.NewMemoryCache(cfg.Cache.MaxBytes),
		metrics: metrics.New(),
		store:   blocks.NewStore(cfg.DefaultVoice, blocks.WithHistorySize(cfg.HistorySize)),
	}
	a.metrics.WatchCache(a.cache.Stats)

	engine, err := newEngine(cfg, a.cache)
	if err != nil {
		return nil, err
	}
	a.engine = engine

	a.gen = generation.NewGenerator(a.store, engine, a.metrics.ObserveGeneration)
	a.orch = generation.NewOrchestrator(a.store, a.gen, a.onProgress)
	a.encoder = encoder.New(
		encoder.WithCache(a.cache),
		encoder.WithObserver(a.metrics.ObserveEncode),
	)
	a.exporter = export.New(a.encoder,
		export.WithCompression(cfg.Export.Compress),
		export.WithObserver(a.metrics.ObserveExport),
	)

	info := engine.Info()
	log.Debug("engine ready", "name", info.Name, "model", info.Model, "online", info.IsOnline)
	return a, nil
}

// Archives use the encoder's synchronous path.
var _ export.SyncEncoder = (*encoder.Encoder)(nil)

func newEngine(cfg config.Config, c cache.Cache) (tts.SpeechGenerator, error) {
	engine, err := tts.ParseEngine(cfg.Engine)
	if err != nil {
		return nil, err
	}
	switch engine {
	case tts.EngineGemini:
		return engines.NewGeminiEngine(engines.GeminiConfig{
			APIKey:            cfg.Gemini.APIKey,
			Model:             cfg.Gemini.Model,
			Endpoint:          cfg.Gemini.Endpoint,
			Timeout:           cfg.Gemini.Timeout,
			RequestsPerMinute: cfg.Gemini.RequestsPerMinute,
			Cache:             c,
		})
	case tts.EngineMock:
		return engines.NewMockEngine(engines.MockConfig{
			Delay:       cfg.Mock.Delay,
			FailureText: cfg.Mock.FailureText,
			Duration:    cfg.Mock.Duration,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %s", tts.ErrInvalidEngine, engine)
	}
}

func (a *app) onProgress(p generation.Progress) {
	a.metrics.ObserveProgress(p)
	log.Debug("batch progress", "done", p.Done, "total", p.Total, "running", p.Running)
}

// loadScript reads path into the store.
func (a *app) loadScript(path string) (script.Changes, error) {
	s, err := script.Load(path)
	if err != nil {
		return script.Changes{}, err
	}
	changes, err := script.Sync(a.store, s)
	if err != nil {
		return changes, fmt.Errorf("unable to apply script: %w", err)
	}
	log.Info("script loaded", "path", path, "blocks", len(s.Entries),
		"added", changes.Added, "updated", changes.Updated, "removed", changes.Removed)
	return changes, nil
}
