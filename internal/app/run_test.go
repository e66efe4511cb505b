package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rojanmagar2001/reeltally/internal/domain"
	"github.com/rojanmagar2001/reeltally/internal/infra/httpclient"
	"github.com/rojanmagar2001/reeltally/internal/model"
	"github.com/rojanmagar2001/reeltally/internal/transport"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func post(id, views string) string {
	return fmt.Sprintf(`<div class="x1qjc9v5 xw3qccf"><a href="/reel/%s/"><div><div><svg aria-label="View Count Icon"></svg></div><span>%s</span></div></a></div>`, id, views)
}

func writeFeed(t *testing.T, posts ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.html")
	page := `<html><body><main><div><div><div><div class="_ac7v">` + strings.Join(posts, "") + `</div></div></div></div></main></body></html>`
	if err := os.WriteFile(path, []byte(page), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := Defaults()
	cfg.BoltPath = filepath.Join(t.TempDir(), "reeltally.db")
	cfg.DownloadDir = t.TempDir()
	cfg.PollInterval = 10 * time.Millisecond
	cfg.MaxPolls = 1
	return cfg
}

func TestWatchThenExportAndClear(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source = writeFeed(t, post("a", "1.2K"), post("b", "3M"), post("a", "1.2K"))
	ctx := context.Background()
	log := quietLogger()

	var out bytes.Buffer
	if err := Watch(ctx, cfg, &out, log); err != nil {
		t.Fatalf("watch: %v", err)
	}
	if !strings.Contains(out.String(), "Reels seen: 2") {
		t.Fatalf("unexpected watch output:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Stored: 2 new") {
		t.Fatalf("expected two stored records:\n%s", out.String())
	}

	out.Reset()
	if err := Do(ctx, cfg, model.ActionDownloadData, &out, log); err != nil {
		t.Fatalf("export: %v", err)
	}
	if strings.TrimSpace(out.String()) != model.StatusDownloadOK {
		t.Fatalf("export status: %q", out.String())
	}
	b, err := os.ReadFile(filepath.Join(cfg.DownloadDir, domain.ReportFilename))
	if err != nil {
		t.Fatal(err)
	}
	want := "Total Reels Tracked: 2\n\n" +
		"Views: 3000000 - Link: https://www.instagram.com/reel/b/\n" +
		"Views: 1200 - Link: https://www.instagram.com/reel/a/\n"
	if string(b) != want {
		t.Fatalf("export file:\n%s\nwant:\n%s", b, want)
	}

	out.Reset()
	if err := Do(ctx, cfg, model.ActionClearData, &out, log); err != nil {
		t.Fatalf("clear: %v", err)
	}
	out.Reset()
	if err := Do(ctx, cfg, model.ActionDownloadData, &out, log); err != nil {
		t.Fatalf("export after clear: %v", err)
	}
	if strings.TrimSpace(out.String()) != model.StatusNoData {
		t.Fatalf("expected no data, got %q", out.String())
	}
}

func TestWatch_RequiresSource(t *testing.T) {
	if err := Watch(context.Background(), testConfig(t), io.Discard, quietLogger()); err == nil {
		t.Fatal("expected error without source")
	}
}

func TestWatch_RemoteSink(t *testing.T) {
	srvCfg := testConfig(t)
	srvCfg.Store = "memory"
	st, err := Wire(context.Background(), srvCfg, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer closeStack(st)

	srv := httptest.NewServer(st.Server().Handler())
	defer srv.Close()

	cfg := testConfig(t)
	cfg.ServerURL = srv.URL
	cfg.Source = writeFeed(t, post("x", "10"), post("y", "20"))

	var out bytes.Buffer
	if err := Watch(context.Background(), cfg, &out, quietLogger()); err != nil {
		t.Fatalf("watch: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := st.Queue().Flush(ctx); err != nil {
		t.Fatal(err)
	}
	d, err := st.Queue().Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(d) != 2 {
		t.Fatalf("expected 2 records on the server, got %v", d)
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store = "memory"
	st, err := Wire(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer closeStack(st)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, st, ln, io.Discard) }()

	c := transport.NewClient("http://"+ln.Addr().String(), httpclient.New(2*time.Second))
	status, err := c.Track(context.Background(), domain.Record{Link: "https://www.instagram.com/p/q/", Views: 7})
	if err != nil || status != model.StatusQueued {
		t.Fatalf("track: %q %v", status, err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestDo_UnknownActionIsError(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store = "memory"
	var out bytes.Buffer
	if err := Do(context.Background(), cfg, "explode", &out, quietLogger()); err == nil {
		t.Fatal("expected error")
	}
	if strings.TrimSpace(out.String()) != model.StatusUnknownAction {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestDo_RemoteTransportFailureIsReturned(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	cfg := testConfig(t)
	cfg.ServerURL = "http://" + addr
	cfg.Timeout = time.Second

	var out bytes.Buffer
	err = Do(context.Background(), cfg, model.ActionDownloadData, &out, quietLogger())
	if err == nil {
		t.Fatal("expected error for unreachable server")
	}
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected the dial error to be wrapped, got %v", err)
	}
	if !strings.HasPrefix(out.String(), "Error: ") {
		t.Fatalf("expected error status, got %q", out.String())
	}
}
