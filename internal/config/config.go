// Package config holds blockvox settings. Values come from built-in defaults,
// then the YAML config file through viper, then BLOCKVOX_ environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/blockvox/internal/tts"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BLOCKVOX_"

// Config contains all blockvox configuration options.
type Config struct {
	Engine       string `yaml:"engine" env:"ENGINE"`
	DefaultVoice string `yaml:"default_voice" env:"DEFAULT_VOICE"`
	// HistorySize bounds the per-store transition log.
	HistorySize int `yaml:"history_size" env:"HISTORY_SIZE"`

	Gemini GeminiConfig `yaml:"gemini" envPrefix:"GEMINI_"`
	Mock   MockConfig   `yaml:"mock" envPrefix:"MOCK_"`
	Export ExportConfig `yaml:"export" envPrefix:"EXPORT_"`
	Cache  CacheConfig  `yaml:"cache" envPrefix:"CACHE_"`
	Server ServerConfig `yaml:"server" envPrefix:"SERVER_"`
	Log    LogConfig    `yaml:"log" envPrefix:"LOG_"`
}

// GeminiConfig contains Gemini speech API settings.
type GeminiConfig struct {
	APIKey            string        `yaml:"api_key" env:"API_KEY"`
	Model             string        `yaml:"model" env:"MODEL"`
	Endpoint          string        `yaml:"endpoint" env:"ENDPOINT"`
	Timeout           time.Duration `yaml:"timeout" env:"TIMEOUT"`
	RequestsPerMinute int           `yaml:"requests_per_minute" env:"REQUESTS_PER_MINUTE"`
}

// MockConfig contains offline engine settings.
type MockConfig struct {
	Delay       time.Duration `yaml:"delay" env:"DELAY"`
	FailureText string        `yaml:"failure_text" env:"FAILURE_TEXT"`
	Duration    time.Duration `yaml:"duration" env:"DURATION"`
}

// ExportConfig controls archive and file output.
type ExportConfig struct {
	Compress    bool   `yaml:"compress" env:"COMPRESS"`
	OutputDir   string `yaml:"output_dir" env:"OUTPUT_DIR"`
	ArchiveName string `yaml:"archive_name" env:"ARCHIVE_NAME"`
}

// CacheConfig bounds the in-memory caches.
type CacheConfig struct {
	MaxBytes int64 `yaml:"max_bytes" env:"MAX_BYTES"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Engine:       string(tts.EngineMock),
		DefaultVoice: tts.DefaultVoice,
		HistorySize:  256,
		Gemini: GeminiConfig{
			Model:             "gemini-2.5-flash-preview-tts",
			Endpoint:          "https://generativelanguage.googleapis.com/v1beta",
			Timeout:           60 * time.Second,
			RequestsPerMinute: 10,
		},
		Mock: MockConfig{
			Duration: 300 * time.Millisecond,
		},
		Export: ExportConfig{
			OutputDir:   ".",
			ArchiveName: "tts_audio.zip",
		},
		Cache: CacheConfig{
			MaxBytes: 64 << 20,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8740",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// SetDefaults registers the defaults with v so they show up in lookups.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("engine", d.Engine)
	v.SetDefault("default_voice", d.DefaultVoice)
	v.SetDefault("history_size", d.HistorySize)

	v.SetDefault("gemini.model", d.Gemini.Model)
	v.SetDefault("gemini.endpoint", d.Gemini.Endpoint)
	v.SetDefault("gemini.timeout", d.Gemini.Timeout.String())
	v.SetDefault("gemini.requests_per_minute", d.Gemini.RequestsPerMinute)

	v.SetDefault("mock.delay", d.Mock.Delay.String())
	v.SetDefault("mock.duration", d.Mock.Duration.String())

	v.SetDefault("export.compress", d.Export.Compress)
	v.SetDefault("export.output_dir", d.Export.OutputDir)
	v.SetDefault("export.archive_name", d.Export.ArchiveName)

	v.SetDefault("cache.max_bytes", d.Cache.MaxBytes)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("log.level", d.Log.Level)
}

// LoadFromViper builds a Config from v, then applies environment overrides
// and validates the result. A .env file in the working directory is loaded
// first when present.
func LoadFromViper(v *viper.Viper) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if err := overlay(v, &cfg); err != nil {
		return cfg, err
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func overlay(v *viper.Viper, cfg *Config) error {
	if v == nil {
		return nil
	}
	if v.IsSet("engine") {
		cfg.Engine = v.GetString("engine")
	}
	if v.IsSet("default_voice") {
		cfg.DefaultVoice = v.GetString("default_voice")
	}
	if v.IsSet("history_size") {
		cfg.HistorySize = v.GetInt("history_size")
	}

	if v.IsSet("gemini.api_key") {
		cfg.Gemini.APIKey = v.GetString("gemini.api_key")
	}
	if v.IsSet("gemini.model") {
		cfg.Gemini.Model = v.GetString("gemini.model")
	}
	if v.IsSet("gemini.endpoint") {
		cfg.Gemini.Endpoint = v.GetString("gemini.endpoint")
	}
	if v.IsSet("gemini.requests_per_minute") {
		cfg.Gemini.RequestsPerMinute = v.GetInt("gemini.requests_per_minute")
	}

	if v.IsSet("mock.failure_text") {
		cfg.Mock.FailureText = v.GetString("mock.failure_text")
	}

	if v.IsSet("export.compress") {
		cfg.Export.Compress = v.GetBool("export.compress")
	}
	if v.IsSet("export.output_dir") {
		cfg.Export.OutputDir = v.GetString("export.output_dir")
	}
	if v.IsSet("export.archive_name") {
		cfg.Export.ArchiveName = v.GetString("export.archive_name")
	}

	if v.IsSet("cache.max_bytes") {
		cfg.Cache.MaxBytes = v.GetInt64("cache.max_bytes")
	}
	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}
	if v.IsSet("log.level") {
		cfg.Log.Level = v.GetString("log.level")
	}

	durations := map[string]*time.Duration{
		"gemini.timeout": &cfg.Gemini.Timeout,
		"mock.delay":     &cfg.Mock.Delay,
		"mock.duration":  &cfg.Mock.Duration,
	}
	for key, dst := range durations {
		if !v.IsSet(key) {
			continue
		}
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}
	return nil
}

// Validate checks the configuration and canonicalizes names.
func (c *Config) Validate() error {
	engine, err := tts.ParseEngine(c.Engine)
	if err != nil {
		return err
	}
	c.Engine = string(engine)

	voice, err := tts.ValidateVoice(c.DefaultVoice)
	if err != nil {
		return fmt.Errorf("default_voice: %w", err)
	}
	c.DefaultVoice = voice

	if c.HistorySize < 1 {
		return fmt.Errorf("history_size must be at least 1, got %d", c.HistorySize)
	}
	if c.Gemini.Timeout <= 0 {
		return fmt.Errorf("gemini.timeout must be positive, got %s", c.Gemini.Timeout)
	}
	if c.Gemini.RequestsPerMinute < 1 {
		return fmt.Errorf("gemini.requests_per_minute must be at least 1, got %d", c.Gemini.RequestsPerMinute)
	}
	if c.Mock.Delay < 0 || c.Mock.Duration <= 0 {
		return errors.New("mock.delay must not be negative and mock.duration must be positive")
	}
	if c.Cache.MaxBytes < 0 {
		return fmt.Errorf("cache.max_bytes must not be negative, got %d", c.Cache.MaxBytes)
	}
	if name := c.Export.ArchiveName; !strings.HasSuffix(strings.ToLower(name), ".zip") {
		return fmt.Errorf("export.archive_name must end in .zip, got %q", name)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	dir, err := homedir.Expand(c.Export.OutputDir)
	if err != nil {
		return fmt.Errorf("export.output_dir: %w", err)
	}
	c.Export.OutputDir = dir
	return nil
}

// RequiresAPIKey reports whether the selected engine calls the remote API.
func (c Config) RequiresAPIKey() bool {
	return c.Engine == string(tts.EngineGemini)
}
