package usecase

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/rojanmagar2001/reeltally/internal/dedup"
	"github.com/rojanmagar2001/reeltally/internal/metrics"
	"github.com/rojanmagar2001/reeltally/internal/ports"
)

// Observer turns page events into records for one page session. Each
// session gets a fresh dedup set.
type Observer struct {
	session string
	base    *url.URL

	extractor ports.Extractor
	gate      *dedup.Gate
	scroll    ports.Throttle

	log *slog.Logger
	m   *metrics.Metrics
}

func NewObserver(base *url.URL, ex ports.Extractor, sink ports.Sink, scroll ports.Throttle, log *slog.Logger, m *metrics.Metrics) *Observer {
	if log == nil {
		log = slog.Default()
	}
	if m == nil {
		m = new(metrics.Metrics)
	}
	session := uuid.New().String()
	log = log.With("session", session)

	return &Observer{
		session:   session,
		base:      base,
		extractor: ex,
		gate:      dedup.NewGate(sink, log, m),
		scroll:    scroll,
		log:       log,
		m:         m,
	}
}

func (o *Observer) Session() string { return o.session }

// Seen reports how many distinct links this session has forwarded.
func (o *Observer) Seen() int { return o.gate.Seen() }

// Start runs the initial full pass over content present at load time.
func (o *Observer) Start(ctx context.Context, doc *html.Node) int {
	return o.scan(ctx, "initial", doc)
}

// OnScroll rescans the whole document unless a pass already ran within
// the throttle window, in which case the event is dropped.
func (o *Observer) OnScroll(ctx context.Context, doc *html.Node) (ran bool, submitted int) {
	if o.scroll != nil && !o.scroll.Allow() {
		o.m.ScansThrottled.Add(1)
		return false, 0
	}
	return true, o.scan(ctx, "scroll", doc)
}

// OnMutation scans only the inserted subtrees.
func (o *Observer) OnMutation(ctx context.Context, inserted []*html.Node) int {
	if len(inserted) == 0 {
		return 0
	}
	return o.scan(ctx, "mutation", inserted...)
}

func (o *Observer) scan(ctx context.Context, trigger string, roots ...*html.Node) (submitted int) {
	defer func() {
		if p := recover(); p != nil {
			o.log.Error("scan aborted", "trigger", trigger, "panic", p)
		}
	}()

	o.m.ScanPasses.Add(1)
	records := o.extractor.Extract(o.base, roots...)
	for _, r := range records {
		if o.gate.Submit(ctx, r) {
			submitted++
		}
	}
	if submitted > 0 {
		o.log.Debug("scan complete", "trigger", trigger, "found", len(records), "submitted", submitted)
	}
	return submitted
}
