package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/rojanmagar2001/reeltally/internal/dataset"
	"github.com/rojanmagar2001/reeltally/internal/extract"
	"github.com/rojanmagar2001/reeltally/internal/fetch"
	"github.com/rojanmagar2001/reeltally/internal/infra/download"
	"github.com/rojanmagar2001/reeltally/internal/infra/extractor"
	"github.com/rojanmagar2001/reeltally/internal/infra/httpclient"
	"github.com/rojanmagar2001/reeltally/internal/infra/limiter"
	"github.com/rojanmagar2001/reeltally/internal/infra/store"
	"github.com/rojanmagar2001/reeltally/internal/ingest"
	"github.com/rojanmagar2001/reeltally/internal/metrics"
	"github.com/rojanmagar2001/reeltally/internal/ports"
	"github.com/rojanmagar2001/reeltally/internal/transport"
	"github.com/rojanmagar2001/reeltally/internal/usecase"
)

// NewLogger builds the process logger from the log_level/log_format settings.
func NewLogger(w io.Writer, cfg Config) (*slog.Logger, error) {
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// Stack is the storage side: store, dataset repository, ingestion queue
// and the services built on them.
type Stack struct {
	cfg Config
	log *slog.Logger
	m   *metrics.Metrics

	kv       ports.KV
	ex       *extract.Extractor
	queue    *ingest.Queue
	exporter *usecase.Exporter
	sorter   *usecase.PageSorter
}

func Wire(ctx context.Context, cfg Config, log *slog.Logger) (*Stack, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	m := new(metrics.Metrics)

	ex, err := extract.New(cfg.Selectors)
	if err != nil {
		return nil, err
	}
	codec, err := dataset.CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	kv, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	repo := dataset.NewRepository(kv, codec)
	created, err := repo.Init(ctx)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	if created {
		log.Info("initialized empty dataset", "store", cfg.Store)
	}

	q := ingest.New(repo, log.With("component", "ingest"), m)
	return &Stack{
		cfg:      cfg,
		log:      log,
		m:        m,
		kv:       kv,
		ex:       ex,
		queue:    q,
		exporter: usecase.NewExporter(q, download.NewDir(cfg.DownloadDir), log.With("component", "export"), m),
		sorter:   usecase.NewPageSorter(cfg.Page, ex, cfg.PerRow, log.With("component", "sort")),
	}, nil
}

func openStore(ctx context.Context, cfg Config) (ports.KV, error) {
	switch cfg.Store {
	case "memory":
		return store.NewMemory(), nil
	case "bolt":
		return store.OpenBolt(cfg.BoltPath)
	case "postgres":
		return store.OpenPostgres(ctx, cfg.PostgresDSN, cfg.PostgresTable)
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func (s *Stack) Metrics() *metrics.Metrics { return s.m }

func (s *Stack) Queue() *ingest.Queue { return s.queue }

func (s *Stack) Server() *transport.Server {
	return transport.NewServer(s.queue, s.exporter, s.sorter, s.m, s.log.With("component", "transport"))
}

// Close waits for pending records (bounded by ctx) and closes the store.
func (s *Stack) Close(ctx context.Context) error {
	qerr := s.queue.Close(ctx)
	if err := s.kv.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return qerr
}

// newWatch builds the observer and watcher for one feed source.
func newWatch(cfg Config, ex *extract.Extractor, sink ports.Sink, log *slog.Logger, m *metrics.Metrics) (*usecase.Observer, *usecase.Watcher, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("base url: %w", err)
	}
	if u, err := url.Parse(cfg.Source); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		base = u
	}

	obs := usecase.NewObserver(base, extractor.New(ex, m), sink, limiter.NewWindow(cfg.ScrollInterval), log.With("component", "observer"), m)

	f := fetch.New(httpclient.New(cfg.Timeout), limiter.New(cfg.Rate, cfg.PerHostRate), cfg.UserAgent)
	posts := func(doc *html.Node) []*html.Node { return ex.Selectors().Post.MatchAll(doc) }
	w := usecase.NewWatcher(f, posts, cfg.PollInterval, cfg.MaxPolls, log.With("component", "watcher"))
	return obs, w, nil
}
