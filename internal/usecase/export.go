package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rojanmagar2001/reeltally/internal/domain"
	"github.com/rojanmagar2001/reeltally/internal/metrics"
	"github.com/rojanmagar2001/reeltally/internal/ports"
)

var (
	ErrReadDataset = errors.New("read dataset")
	ErrDownload    = errors.New("download")
)

// DatasetAccess is the serialized view of the dataset; the ingest queue
// implements it.
type DatasetAccess interface {
	Snapshot(ctx context.Context) (domain.Dataset, error)
	Clear(ctx context.Context) (dropped int, err error)
}

type Exporter struct {
	data       DatasetAccess
	downloader ports.Downloader
	log        *slog.Logger
	m          *metrics.Metrics
}

func NewExporter(data DatasetAccess, dl ports.Downloader, log *slog.Logger, m *metrics.Metrics) *Exporter {
	if log == nil {
		log = slog.Default()
	}
	if m == nil {
		m = new(metrics.Metrics)
	}
	return &Exporter{data: data, downloader: dl, log: log, m: m}
}

// Export writes the dataset, highest views first, through the downloader.
// An empty dataset returns domain.ErrNoData and downloads nothing.
func (e *Exporter) Export(ctx context.Context) (location string, count int, err error) {
	d, err := e.data.Snapshot(ctx)
	if err != nil {
		e.log.Error("export: reading dataset", "err", err)
		return "", 0, fmt.Errorf("%w: %w", ErrReadDataset, err)
	}
	if len(d) == 0 {
		e.log.Info("export: no reels tracked")
		return "", 0, domain.ErrNoData
	}

	report := domain.FormatReport(d.SortedByViews())
	location, err = e.downloader.Download(ctx, domain.ReportFilename, []byte(report))
	if err != nil {
		e.log.Error("export: download failed", "err", err)
		return "", len(d), fmt.Errorf("%w: %w", ErrDownload, err)
	}

	e.m.Exports.Add(1)
	e.log.Info("export: download started", "location", location, "reels", len(d))
	return location, len(d), nil
}

// Clear wipes the dataset and anything still waiting to be stored.
func (e *Exporter) Clear(ctx context.Context) error {
	dropped, err := e.data.Clear(ctx)
	if err != nil {
		e.log.Error("clear failed", "err", err)
		return err
	}
	e.log.Info("tracked reels cleared", "dropped_pending", dropped)
	return nil
}
