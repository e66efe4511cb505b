package app

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rojanmagar2001/reeltally/internal/extract"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reeltally.yaml")
	yml := `
store: memory
codec: msgpack
scroll_interval: 250ms
max_polls: 2
selectors:
  post: div.card
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := load(path, envMap(map[string]string{
		"REELTALLY_CODEC":     "json",
		"REELTALLY_MAX_POLLS": "5",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Store != "memory" {
		t.Fatalf("store = %q", cfg.Store)
	}
	if cfg.Codec != "json" {
		t.Fatalf("env should override file, codec = %q", cfg.Codec)
	}
	if cfg.MaxPolls != 5 {
		t.Fatalf("max polls = %d", cfg.MaxPolls)
	}
	if cfg.ScrollInterval != 250*time.Millisecond {
		t.Fatalf("scroll interval = %s", cfg.ScrollInterval)
	}
	if cfg.Selectors.Post != "div.card" {
		t.Fatalf("post selector = %q", cfg.Selectors.Post)
	}
	if cfg.Selectors.Row != extract.DefaultSelectors().Row {
		t.Fatalf("unset selectors should keep defaults, row = %q", cfg.Selectors.Row)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoad_BadEnvValue(t *testing.T) {
	_, err := load("", envMap(map[string]string{"REELTALLY_POLL_INTERVAL": "soon"}))
	if err == nil {
		t.Fatal("expected error for bad duration")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := load(filepath.Join(t.TempDir(), "nope.yaml"), envMap(nil)); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"memory", func(c *Config) { c.Store = "memory" }, true},
		{"unknown store", func(c *Config) { c.Store = "redis" }, false},
		{"bolt without path", func(c *Config) { c.BoltPath = "" }, false},
		{"postgres without dsn", func(c *Config) { c.Store = "postgres" }, false},
		{"postgres", func(c *Config) { c.Store = "postgres"; c.PostgresDSN = "postgres://localhost/x" }, true},
		{"unknown codec", func(c *Config) { c.Codec = "xml" }, false},
		{"negative scroll", func(c *Config) { c.ScrollInterval = -time.Second }, false},
		{"zero scroll", func(c *Config) { c.ScrollInterval = 0 }, true},
		{"zero poll", func(c *Config) { c.PollInterval = 0 }, false},
		{"zero per row", func(c *Config) { c.PerRow = 0 }, false},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, false},
		{"json format", func(c *Config) { c.LogFormat = "json" }, true},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestBindFlags_OverrideLoadedValues(t *testing.T) {
	cfg := Defaults()
	cfg.Codec = "msgpack"

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.BindFlags(fs)
	if err := fs.Parse([]string{"-store", "memory", "-max-polls", "3"}); err != nil {
		t.Fatal(err)
	}

	if cfg.Store != "memory" || cfg.MaxPolls != 3 {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if cfg.Codec != "msgpack" {
		t.Fatalf("unset flag should keep loaded value, codec = %q", cfg.Codec)
	}
}

func TestBindFlags_TuningFlags(t *testing.T) {
	cfg := Defaults()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.BindFlags(fs)
	args := []string{"-per-row", "6", "-rate", "3", "-per-host-rate", "1", "-pg-table", "reels"}
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}

	if cfg.PerRow != 6 || cfg.Rate != 3 || cfg.PerHostRate != 1 || cfg.PostgresTable != "reels" {
		t.Fatalf("flags not applied: %+v", cfg)
	}
}
