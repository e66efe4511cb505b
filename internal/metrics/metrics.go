package metrics

import (
	"fmt"
	"io"
	"sort"
	"sync/atomic"
)

// Metrics holds atomic counters for the ingestion pipeline.
type Metrics struct {
	ScanPasses          atomic.Int64
	ScansThrottled      atomic.Int64
	RecordsExtracted    atomic.Int64
	DedupSuppressed     atomic.Int64
	SinkErrors          atomic.Int64
	RecordsQueued       atomic.Int64
	RecordsPersisted    atomic.Int64
	DuplicatesDiscarded atomic.Int64
	StoreErrors         atomic.Int64
	QueueDepth          atomic.Int64
	Exports             atomic.Int64
	Clears              atomic.Int64
}

// Snapshot returns all metrics as a string-keyed map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"scan_passes_total":          m.ScanPasses.Load(),
		"scans_throttled_total":      m.ScansThrottled.Load(),
		"records_extracted_total":    m.RecordsExtracted.Load(),
		"dedup_suppressed_total":     m.DedupSuppressed.Load(),
		"sink_errors_total":          m.SinkErrors.Load(),
		"records_queued_total":       m.RecordsQueued.Load(),
		"records_persisted_total":    m.RecordsPersisted.Load(),
		"duplicates_discarded_total": m.DuplicatesDiscarded.Load(),
		"store_errors_total":         m.StoreErrors.Load(),
		"queue_depth":                m.QueueDepth.Load(),
		"exports_total":              m.Exports.Load(),
		"clears_total":               m.Clears.Load(),
	}
}

// WriteText writes the snapshot in Prometheus text exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	snap := m.Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		typ := "counter"
		if k == "queue_depth" {
			typ = "gauge"
		}
		if _, err := fmt.Fprintf(w, "# TYPE reeltally_%s %s\nreeltally_%s %d\n", k, typ, k, snap[k]); err != nil {
			return err
		}
	}
	return nil
}
