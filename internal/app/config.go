package app

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rojanmagar2001/reeltally/internal/dataset"
	"github.com/rojanmagar2001/reeltally/internal/extract"
)

type Config struct {
	// Store is one of memory, bolt or postgres.
	Store         string `yaml:"store"`
	BoltPath      string `yaml:"bolt_path"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	PostgresTable string `yaml:"postgres_table"`
	Codec         string `yaml:"codec"`

	Listen      string `yaml:"listen"`
	ServerURL   string `yaml:"server_url"`
	DownloadDir string `yaml:"download_dir"`

	// Page is the saved page that sortReels rewrites.
	Page   string `yaml:"page"`
	PerRow int    `yaml:"per_row"`

	// Source is the feed page the watcher polls (URL or file path).
	Source         string        `yaml:"source"`
	BaseURL        string        `yaml:"base_url"`
	ScrollInterval time.Duration `yaml:"scroll_interval"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	MaxPolls       int           `yaml:"max_polls"`

	Timeout     time.Duration `yaml:"timeout"`
	UserAgent   string        `yaml:"user_agent"`
	Rate        int           `yaml:"rate"`
	PerHostRate int           `yaml:"per_host_rate"`

	Selectors extract.Selectors `yaml:"selectors"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func Defaults() Config {
	return Config{
		Store:          "bolt",
		BoltPath:       "reeltally.db",
		PostgresTable:  "reeltally_kv",
		Codec:          "json",
		Listen:         "127.0.0.1:8787",
		DownloadDir:    ".",
		PerRow:         4,
		BaseURL:        "https://www.instagram.com/",
		ScrollInterval: 500 * time.Millisecond,
		PollInterval:   2 * time.Second,
		Timeout:        10 * time.Second,
		UserAgent:      "reeltally/0.1",
		Rate:           10,
		PerHostRate:    2,
		Selectors:      extract.DefaultSelectors(),
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load reads an optional YAML file over the defaults, then applies
// REELTALLY_* environment overrides.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup("REELTALLY_" + name); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(name string, dst *int) {
		if v, ok := lookup("REELTALLY_" + name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("REELTALLY_%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup("REELTALLY_" + name); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("REELTALLY_%s: %w", name, err))
				return
			}
			*dst = d
		}
	}

	str("STORE", &c.Store)
	str("BOLT_PATH", &c.BoltPath)
	str("PG_DSN", &c.PostgresDSN)
	str("PG_TABLE", &c.PostgresTable)
	str("CODEC", &c.Codec)
	str("LISTEN", &c.Listen)
	str("SERVER_URL", &c.ServerURL)
	str("DOWNLOAD_DIR", &c.DownloadDir)
	str("PAGE", &c.Page)
	num("PER_ROW", &c.PerRow)
	str("SOURCE", &c.Source)
	str("BASE_URL", &c.BaseURL)
	dur("SCROLL_INTERVAL", &c.ScrollInterval)
	dur("POLL_INTERVAL", &c.PollInterval)
	num("MAX_POLLS", &c.MaxPolls)
	dur("TIMEOUT", &c.Timeout)
	str("USER_AGENT", &c.UserAgent)
	num("RATE", &c.Rate)
	num("PER_HOST_RATE", &c.PerHostRate)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)

	return errors.Join(errs...)
}

// BindFlags registers command-line overrides. Call it after Load so the
// loaded values become the flag defaults.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Store, "store", c.Store, "Storage backend: memory, bolt or postgres")
	fs.StringVar(&c.BoltPath, "bolt-path", c.BoltPath, "bbolt database file")
	fs.StringVar(&c.PostgresDSN, "pg-dsn", c.PostgresDSN, "Postgres connection string")
	fs.StringVar(&c.PostgresTable, "pg-table", c.PostgresTable, "Postgres table holding the dataset")
	fs.StringVar(&c.Codec, "codec", c.Codec, "Dataset encoding: json or msgpack")
	fs.StringVar(&c.Listen, "listen", c.Listen, "Message server listen address")
	fs.StringVar(&c.ServerURL, "server", c.ServerURL, "Send messages to a running server instead of the local store")
	fs.StringVar(&c.DownloadDir, "download-dir", c.DownloadDir, "Directory export files are written to")
	fs.StringVar(&c.Page, "page", c.Page, "Saved page file used as the active tab")
	fs.IntVar(&c.PerRow, "per-row", c.PerRow, "Posts per row when sorting a page")
	fs.StringVar(&c.Source, "source", c.Source, "Feed page to watch (URL or file)")
	fs.StringVar(&c.BaseURL, "base-url", c.BaseURL, "Base URL for resolving relative links in file sources")
	fs.DurationVar(&c.ScrollInterval, "scroll-interval", c.ScrollInterval, "Minimum time between scroll rescans")
	fs.DurationVar(&c.PollInterval, "poll-interval", c.PollInterval, "Time between polls of the source")
	fs.IntVar(&c.MaxPolls, "max-polls", c.MaxPolls, "Stop watching after N polls (0 = until interrupted)")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "HTTP timeout (e.g. 10s)")
	fs.StringVar(&c.UserAgent, "user-agent", c.UserAgent, "User-Agent header for page fetches")
	fs.IntVar(&c.Rate, "rate", c.Rate, "Global page fetches per second")
	fs.IntVar(&c.PerHostRate, "per-host-rate", c.PerHostRate, "Page fetches per second per host")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "text or json")
}

func (c Config) Validate() error {
	var errs []error

	switch c.Store {
	case "memory":
	case "bolt":
		if c.BoltPath == "" {
			errs = append(errs, errors.New("bolt store needs bolt_path"))
		}
	case "postgres":
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres store needs postgres_dsn"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", c.Store))
	}

	if _, err := dataset.CodecByName(c.Codec); err != nil {
		errs = append(errs, err)
	}
	if c.ScrollInterval < 0 {
		errs = append(errs, fmt.Errorf("scroll_interval must not be negative, got %s", c.ScrollInterval))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval))
	}
	if c.PerRow <= 0 {
		errs = append(errs, fmt.Errorf("per_row must be positive, got %d", c.PerRow))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("unknown log_format %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}
