package dedup

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rojanmagar2001/reeltally/internal/domain"
	"github.com/rojanmagar2001/reeltally/internal/metrics"
	"github.com/rojanmagar2001/reeltally/internal/ports"
)

// Gate forwards each link to the sink at most once per session. Being in
// the set means ingestion was attempted, not that the record is stored;
// the store side re-checks.
type Gate struct {
	sink ports.Sink
	log  *slog.Logger
	m    *metrics.Metrics

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewGate(sink ports.Sink, log *slog.Logger, m *metrics.Metrics) *Gate {
	if log == nil {
		log = slog.Default()
	}
	if m == nil {
		m = new(metrics.Metrics)
	}
	return &Gate{
		sink: sink,
		log:  log,
		m:    m,
		seen: make(map[string]struct{}),
	}
}

// Submit returns true when r was forwarded, false when suppressed.
func (g *Gate) Submit(ctx context.Context, r domain.Record) bool {
	if !r.Valid() {
		return false
	}

	g.mu.Lock()
	if _, ok := g.seen[r.Link]; ok {
		g.mu.Unlock()
		g.m.DedupSuppressed.Add(1)
		return false
	}
	g.seen[r.Link] = struct{}{}
	g.mu.Unlock()

	status, err := g.sink.Track(ctx, r)
	if err != nil {
		g.m.SinkErrors.Add(1)
		g.log.Warn("track failed", "link", r.Link, "status", status, "err", err)
		return true
	}
	g.log.Debug("record submitted", "link", r.Link, "views", r.Views, "status", status)
	return true
}

// Seen reports how many distinct links were submitted this session.
func (g *Gate) Seen() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}
