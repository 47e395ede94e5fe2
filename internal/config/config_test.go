package config

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// clearEnv blanks every variable LoadFromViper reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GEMINI_API_KEY",
		EnvPrefix + "ENGINE",
		EnvPrefix + "DEFAULT_VOICE",
		EnvPrefix + "GEMINI_API_KEY",
		EnvPrefix + "GEMINI_TIMEOUT",
		EnvPrefix + "EXPORT_COMPRESS",
		EnvPrefix + "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
	if cfg.Engine != "mock" {
		t.Errorf("default engine = %s, want mock", cfg.Engine)
	}
	if cfg.DefaultVoice != "Kore" {
		t.Errorf("default voice = %s, want Kore", cfg.DefaultVoice)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "valid config", modify: func(*Config) {}},
		{name: "engine alias", modify: func(c *Config) { c.Engine = "Google" }},
		{name: "lowercase voice", modify: func(c *Config) { c.DefaultVoice = "puck" }},
		{name: "invalid engine", modify: func(c *Config) { c.Engine = "piper" }, wantErr: "invalid speech engine"},
		{name: "no engine", modify: func(c *Config) { c.Engine = "" }, wantErr: "no speech engine"},
		{name: "unknown voice", modify: func(c *Config) { c.DefaultVoice = "Korr" }, wantErr: "unknown voice"},
		{name: "zero timeout", modify: func(c *Config) { c.Gemini.Timeout = 0 }, wantErr: "gemini.timeout"},
		{name: "zero rate", modify: func(c *Config) { c.Gemini.RequestsPerMinute = 0 }, wantErr: "requests_per_minute"},
		{name: "negative delay", modify: func(c *Config) { c.Mock.Delay = -time.Second }, wantErr: "mock.delay"},
		{name: "empty history", modify: func(c *Config) { c.HistorySize = 0 }, wantErr: "history_size"},
		{name: "negative cache", modify: func(c *Config) { c.Cache.MaxBytes = -1 }, wantErr: "cache.max_bytes"},
		{name: "archive name", modify: func(c *Config) { c.Export.ArchiveName = "out.tar" }, wantErr: "archive_name"},
		{name: "log level", modify: func(c *Config) { c.Log.Level = "loud" }, wantErr: "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCanonicalizes(t *testing.T) {
	cfg := Default()
	cfg.Engine = "GOOGLE"
	cfg.DefaultVoice = "zephyr"
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Engine != "gemini" || cfg.DefaultVoice != "Zephyr" {
		t.Errorf("got engine %q voice %q", cfg.Engine, cfg.DefaultVoice)
	}
	if !cfg.RequiresAPIKey() {
		t.Error("gemini should require an API key")
	}
}

func readYAML(t *testing.T, doc string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(doc)); err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}
	return v
}

func TestLoadFromViper(t *testing.T) {
	clearEnv(t)
	v := readYAML(t, `
engine: gemini
default_voice: Puck
history_size: 32
gemini:
  api_key: from-file
  timeout: 5s
  requests_per_minute: 30
mock:
  delay: 250ms
export:
  compress: true
  archive_name: episode.zip
cache:
  max_bytes: 1024
`)

	cfg, err := LoadFromViper(v)
	if err != nil {
		t.Fatalf("LoadFromViper() error = %v", err)
	}

	if cfg.Engine != "gemini" || cfg.DefaultVoice != "Puck" || cfg.HistorySize != 32 {
		t.Errorf("engine/voice/history = %s/%s/%d", cfg.Engine, cfg.DefaultVoice, cfg.HistorySize)
	}
	if cfg.Gemini.APIKey != "from-file" || cfg.Gemini.Timeout != 5*time.Second || cfg.Gemini.RequestsPerMinute != 30 {
		t.Errorf("gemini = %+v", cfg.Gemini)
	}
	if cfg.Gemini.Model != Default().Gemini.Model {
		t.Errorf("unset model should keep its default, got %q", cfg.Gemini.Model)
	}
	if cfg.Mock.Delay != 250*time.Millisecond {
		t.Errorf("mock delay = %s", cfg.Mock.Delay)
	}
	if !cfg.Export.Compress || cfg.Export.ArchiveName != "episode.zip" || cfg.Cache.MaxBytes != 1024 {
		t.Errorf("export/cache = %+v %+v", cfg.Export, cfg.Cache)
	}
}

func TestLoadFromViperEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPrefix+"ENGINE", "mock")
	t.Setenv(EnvPrefix+"GEMINI_TIMEOUT", "2s")
	t.Setenv(EnvPrefix+"LOG_LEVEL", "debug")
	t.Setenv("GEMINI_API_KEY", "from-env")

	cfg, err := LoadFromViper(readYAML(t, "engine: gemini\n"))
	if err != nil {
		t.Fatalf("LoadFromViper() error = %v", err)
	}
	if cfg.Engine != "mock" {
		t.Errorf("engine = %s, want env override", cfg.Engine)
	}
	if cfg.Gemini.Timeout != 2*time.Second || cfg.Log.Level != "debug" {
		t.Errorf("timeout %s level %s", cfg.Gemini.Timeout, cfg.Log.Level)
	}
	if cfg.Gemini.APIKey != "from-env" {
		t.Errorf("api key = %q, want GEMINI_API_KEY fallback", cfg.Gemini.APIKey)
	}
}

func TestLoadFromViperErrors(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		doc  string
	}{
		{"bad duration", "gemini:\n  timeout: soon\n"},
		{"bad engine", "engine: espeak\n"},
		{"bad voice", "default_voice: Nobody\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFromViper(readYAML(t, tt.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestTemplate(t *testing.T) {
	clearEnv(t)

	var parsed Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(Template)))
	dec.KnownFields(true)
	if err := dec.Decode(&parsed); err != nil {
		t.Fatalf("template does not match Config: %v", err)
	}

	v := readYAML(t, Template)
	cfg, err := LoadFromViper(v)
	if err != nil {
		t.Fatalf("template does not load: %v", err)
	}
	want := Default()
	if err := want.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg != want {
		t.Errorf("template config = %+v, want defaults %+v", cfg, want)
	}
}

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	if v.GetString("engine") != "mock" || v.GetString("server.addr") != Default().Server.Addr {
		t.Errorf("defaults not registered: engine=%q addr=%q", v.GetString("engine"), v.GetString("server.addr"))
	}
}
