package extractor

import (
	"net/url"

	"golang.org/x/net/html"

	"github.com/rojanmagar2001/reeltally/internal/domain"
	"github.com/rojanmagar2001/reeltally/internal/extract"
	"github.com/rojanmagar2001/reeltally/internal/metrics"
)

// Adapter counts what the extractor produces.
type Adapter struct {
	ex *extract.Extractor
	m  *metrics.Metrics
}

func New(ex *extract.Extractor, m *metrics.Metrics) *Adapter {
	if m == nil {
		m = new(metrics.Metrics)
	}
	return &Adapter{ex: ex, m: m}
}

func (a *Adapter) Extract(base *url.URL, roots ...*html.Node) []domain.Record {
	out := a.ex.Extract(base, roots...)
	a.m.RecordsExtracted.Add(int64(len(out)))
	return out
}
