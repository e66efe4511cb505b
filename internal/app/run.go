package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/rojanmagar2001/reeltally/internal/extract"
	"github.com/rojanmagar2001/reeltally/internal/infra/httpclient"
	"github.com/rojanmagar2001/reeltally/internal/metrics"
	"github.com/rojanmagar2001/reeltally/internal/model"
	"github.com/rojanmagar2001/reeltally/internal/ports"
	"github.com/rojanmagar2001/reeltally/internal/transport"
)

const shutdownTimeout = 5 * time.Second

// Serve runs the message server until ctx is done. With cfg.Source set a
// watcher feeds the same queue.
func Serve(ctx context.Context, cfg Config, stdout io.Writer, log *slog.Logger) error {
	st, err := Wire(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStack(st)

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Listen, err)
	}
	return serve(ctx, st, ln, stdout)
}

func serve(ctx context.Context, st *Stack, ln net.Listener, stdout io.Writer) error {
	srv := &http.Server{
		Handler:           st.Server().Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	fmt.Fprintf(stdout, "Listening on http://%s\n", ln.Addr())

	if st.cfg.Source != "" {
		obs, w, err := newWatch(st.cfg, st.ex, st.queue, st.log, st.m)
		if err != nil {
			_ = srv.Close()
			return err
		}
		go func() {
			if err := w.Watch(ctx, st.cfg.Source, obs); err != nil {
				st.log.Error("watcher stopped", "err", err)
			}
		}()
	}

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Watch observes cfg.Source until ctx is done or max polls is reached.
// Records go to the local store, or to cfg.ServerURL when set.
func Watch(ctx context.Context, cfg Config, stdout io.Writer, log *slog.Logger) error {
	if cfg.Source == "" {
		return errors.New("source is required")
	}
	if log == nil {
		log = slog.Default()
	}

	var (
		sink ports.Sink
		ex   *extract.Extractor
		m    *metrics.Metrics
		st   *Stack
	)
	if cfg.ServerURL != "" {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		var err error
		if ex, err = extract.New(cfg.Selectors); err != nil {
			return err
		}
		sink = transport.NewClient(cfg.ServerURL, httpclient.New(cfg.Timeout))
		m = new(metrics.Metrics)
	} else {
		var err error
		if st, err = Wire(ctx, cfg, log); err != nil {
			return err
		}
		defer closeStack(st)
		sink, ex, m = st.queue, st.ex, st.m
	}

	obs, w, err := newWatch(cfg, ex, sink, log, m)
	if err != nil {
		return err
	}
	if err := w.Watch(ctx, cfg.Source, obs); err != nil {
		return err
	}

	if st != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := st.queue.Flush(flushCtx); err != nil {
			return fmt.Errorf("flush queue: %w", err)
		}
	}

	snap := m.Snapshot()
	fmt.Fprintf(stdout, "Session %s\n", obs.Session())
	fmt.Fprintf(stdout, "Reels seen: %d\n", obs.Seen())
	fmt.Fprintf(stdout, "Scan passes: %d (throttled: %d)\n", snap["scan_passes_total"], snap["scans_throttled_total"])
	if st != nil {
		fmt.Fprintf(stdout, "Stored: %d new, %d already tracked\n", snap["records_persisted_total"], snap["duplicates_discarded_total"])
	}
	return nil
}

// Do sends one action through the same dispatch the message server uses
// and prints the resulting status. An error status is also returned as an
// error.
func Do(ctx context.Context, cfg Config, action model.Action, stdout io.Writer, log *slog.Logger) error {
	var resp model.Response
	if cfg.ServerURL != "" {
		c := transport.NewClient(cfg.ServerURL, httpclient.New(cfg.Timeout))
		var err error
		if resp, err = c.Send(ctx, action, nil); err != nil {
			fmt.Fprintln(stdout, resp.Status)
			return fmt.Errorf("%s via %s: %w", action, cfg.ServerURL, err)
		}
	} else {
		st, err := Wire(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer closeStack(st)
		_, resp = st.Server().Dispatch(ctx, model.Request{Action: action})
	}

	fmt.Fprintln(stdout, resp.Status)
	if resp.IsError() || resp.Status == model.StatusUnknownAction {
		return errors.New(resp.Status)
	}
	return nil
}

func closeStack(st *Stack) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := st.Close(ctx); err != nil {
		st.log.Error("close", "err", err)
	}
}
