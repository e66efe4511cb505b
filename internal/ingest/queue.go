// Package ingest persists observed records one at a time.
//
// The store offers no atomic read-modify-write, so every sequence that
// touches the dataset (ingest cycle, export snapshot, clear) runs while
// holding the queue's serializer token. At most one such sequence is in
// flight, which rules out lost appends and lost clears.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rojanmagar2001/reeltally/internal/domain"
	"github.com/rojanmagar2001/reeltally/internal/metrics"
	"github.com/rojanmagar2001/reeltally/internal/model"
)

var ErrClosed = errors.New("ingest queue closed")

// Repository is the whole-dataset load/save pair the queue drives.
type Repository interface {
	Load(ctx context.Context) (domain.Dataset, error)
	Save(ctx context.Context, d domain.Dataset) error
}

type Queue struct {
	repo Repository
	log  *slog.Logger
	m    *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc

	token sync.Mutex

	mu       sync.Mutex
	pending  []domain.Record
	draining bool
	idle     chan struct{}
	closed   bool
}

func New(repo Repository, log *slog.Logger, m *metrics.Metrics) *Queue {
	if log == nil {
		log = slog.Default()
	}
	if m == nil {
		m = new(metrics.Metrics)
	}
	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)

	return &Queue{
		repo:   repo,
		log:    log,
		m:      m,
		ctx:    ctx,
		cancel: cancel,
		idle:   idle,
	}
}

// Enqueue appends r and starts a drain unless one is already running.
func (q *Queue) Enqueue(r domain.Record) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	q.pending = append(q.pending, r)
	q.m.RecordsQueued.Add(1)
	q.m.QueueDepth.Store(int64(len(q.pending)))

	if !q.draining {
		q.draining = true
		q.idle = make(chan struct{})
		go q.drain()
	}
	return nil
}

// Track makes the queue usable as the dedup gate's sink in-process.
func (q *Queue) Track(_ context.Context, r domain.Record) (string, error) {
	if err := q.Enqueue(r); err != nil {
		return model.ErrorStatus(err), err
	}
	return model.StatusQueued, nil
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Flush blocks until the queue is empty and no drain is running.
func (q *Queue) Flush(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects new records, waits for pending ones (bounded by ctx) and
// then cancels the context used for store calls.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	err := q.Flush(ctx)
	q.cancel()
	return err
}

// drain pops and persists records until the queue is empty. Only one
// drain goroutine exists at a time; the draining flag is cleared on the
// empty-queue path only, after every earlier record has been attempted.
func (q *Queue) drain() {
	for {
		q.token.Lock()

		q.mu.Lock()
		if len(q.pending) == 0 {
			q.draining = false
			close(q.idle)
			q.mu.Unlock()
			q.token.Unlock()
			return
		}
		r := q.pending[0]
		q.pending[0] = domain.Record{}
		q.pending = q.pending[1:]
		q.m.QueueDepth.Store(int64(len(q.pending)))
		q.mu.Unlock()

		added, n, err := q.persist(r)
		q.token.Unlock()

		switch {
		case err != nil:
			q.m.StoreErrors.Add(1)
			q.log.Error("dropping record after store failure", "link", r.Link, "err", err)
		case added:
			q.m.RecordsPersisted.Add(1)
			q.log.Info("reel added", "link", r.Link, "views", r.Views, "total", n)
		default:
			q.m.DuplicatesDiscarded.Add(1)
			q.log.Debug("reel already stored", "link", r.Link)
		}
	}
}

// persist runs one read-modify-write cycle. The caller holds the token.
func (q *Queue) persist(r domain.Record) (added bool, total int, err error) {
	defer func() {
		if p := recover(); p != nil {
			added, err = false, fmt.Errorf("store panic: %v", p)
		}
	}()

	d, err := q.repo.Load(q.ctx)
	if err != nil {
		return false, 0, fmt.Errorf("load dataset: %w", err)
	}
	if d.Contains(r.Link) {
		return false, len(d), nil
	}

	d = append(d, r)
	if err := q.repo.Save(q.ctx, d); err != nil {
		return false, 0, fmt.Errorf("save dataset: %w", err)
	}
	return true, len(d), nil
}

// Snapshot reads the dataset between ingest cycles.
func (q *Queue) Snapshot(ctx context.Context) (domain.Dataset, error) {
	q.token.Lock()
	defer q.token.Unlock()

	d, err := q.repo.Load(ctx)
	if err != nil {
		q.m.StoreErrors.Add(1)
		return nil, err
	}
	return d, nil
}

// Clear drops every pending record and replaces the dataset with an empty
// one. No ingest cycle can interleave with it.
func (q *Queue) Clear(ctx context.Context) (dropped int, err error) {
	q.token.Lock()
	defer q.token.Unlock()

	q.mu.Lock()
	dropped = len(q.pending)
	q.pending = nil
	q.m.QueueDepth.Store(0)
	q.mu.Unlock()

	if err := q.repo.Save(ctx, domain.Dataset{}); err != nil {
		q.m.StoreErrors.Add(1)
		return dropped, err
	}
	q.m.Clears.Add(1)
	return dropped, nil
}
