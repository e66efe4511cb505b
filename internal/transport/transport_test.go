package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rojanmagar2001/reeltally/internal/dataset"
	"github.com/rojanmagar2001/reeltally/internal/domain"
	"github.com/rojanmagar2001/reeltally/internal/extract"
	"github.com/rojanmagar2001/reeltally/internal/infra/download"
	"github.com/rojanmagar2001/reeltally/internal/infra/httpclient"
	"github.com/rojanmagar2001/reeltally/internal/infra/store"
	"github.com/rojanmagar2001/reeltally/internal/ingest"
	"github.com/rojanmagar2001/reeltally/internal/metrics"
	"github.com/rojanmagar2001/reeltally/internal/model"
	"github.com/rojanmagar2001/reeltally/internal/usecase"
)

type fixture struct {
	client   *Client
	queue    *ingest.Queue
	dlDir    string
	pagePath string
}

func newFixture(t *testing.T, page string) *fixture {
	t.Helper()

	m := new(metrics.Metrics)
	repo := dataset.NewRepository(store.NewMemory(), nil)
	q := ingest.New(repo, nil, m)
	dlDir := t.TempDir()
	exp := usecase.NewExporter(q, download.NewDir(dlDir), nil, m)

	ex, err := extract.New(extract.DefaultSelectors())
	if err != nil {
		t.Fatal(err)
	}
	var pagePath string
	if page != "" {
		pagePath = filepath.Join(t.TempDir(), "tab.html")
		if err := os.WriteFile(pagePath, []byte(page), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	sorter := usecase.NewPageSorter(pagePath, ex, 4, nil)

	srv := httptest.NewServer(NewServer(q, exp, sorter, m, nil).Handler())
	t.Cleanup(srv.Close)

	return &fixture{
		client:   NewClient(srv.URL, httpclient.New(2*time.Second)),
		queue:    q,
		dlDir:    dlDir,
		pagePath: pagePath,
	}
}

func (f *fixture) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.queue.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func TestServer_TrackDownloadClear(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	for _, r := range []domain.Record{
		{Link: "https://www.instagram.com/reel/a/", Views: 5},
		{Link: "https://www.instagram.com/reel/b/", Views: 50},
		{Link: "https://www.instagram.com/reel/a/", Views: 5},
	} {
		status, err := f.client.Track(ctx, r)
		if err != nil || status != model.StatusQueued {
			t.Fatalf("track: status=%q err=%v", status, err)
		}
	}
	f.flush(t)

	resp, err := f.client.Send(ctx, model.ActionDownloadData, nil)
	if err != nil || resp.Status != model.StatusDownloadOK {
		t.Fatalf("download: %+v err=%v", resp, err)
	}
	b, err := os.ReadFile(filepath.Join(f.dlDir, domain.ReportFilename))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	out := string(b)
	if !strings.HasPrefix(out, "Total Reels Tracked: 2\n\n") {
		t.Fatalf("unexpected export:\n%s", out)
	}
	if strings.Index(out, "/reel/b/") > strings.Index(out, "/reel/a/") {
		t.Fatalf("expected b before a:\n%s", out)
	}

	resp, _ = f.client.Send(ctx, model.ActionClearData, nil)
	if resp.Status != model.StatusCleared {
		t.Fatalf("clear: %+v", resp)
	}
	resp, _ = f.client.Send(ctx, model.ActionDownloadData, nil)
	if resp.Status != model.StatusNoData {
		t.Fatalf("download after clear: %+v", resp)
	}
}

func TestServer_InvalidAndUnknown(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	resp, err := f.client.Send(ctx, model.ActionTrackReel, map[string]any{"views": 3})
	if err == nil || resp.Status != model.StatusInvalidReel {
		t.Fatalf("expected invalid reel, got %+v err=%v", resp, err)
	}

	resp, err = f.client.Send(ctx, "reticulateSplines", nil)
	if err == nil || resp.Status != model.StatusUnknownAction {
		t.Fatalf("expected unknown action, got %+v err=%v", resp, err)
	}
}

func TestServer_SortReels(t *testing.T) {
	page := `<html><body><main><div><div><div><div class="_ac7v">` +
		`<div class="x1qjc9v5 xw3qccf"><a href="/reel/low/"><div><div><svg aria-label="View Count Icon"></svg></div><span>3</span></div></a></div>` +
		`<div class="x1qjc9v5 xw3qccf"><a href="/reel/high/"><div><div><svg aria-label="View Count Icon"></svg></div><span>3K</span></div></a></div>` +
		`</div></div></div></div></main></body></html>`
	f := newFixture(t, page)

	resp, err := f.client.Send(context.Background(), model.ActionSortReels, nil)
	if err != nil || resp.Status != "Sorted 2 reels" {
		t.Fatalf("sort: %+v err=%v", resp, err)
	}

	b, _ := os.ReadFile(f.pagePath)
	if strings.Index(string(b), "/reel/high/") > strings.Index(string(b), "/reel/low/") {
		t.Fatalf("page not reordered:\n%s", b)
	}
}

func TestServer_SortWithoutTab(t *testing.T) {
	f := newFixture(t, "")
	resp, _ := f.client.Send(context.Background(), model.ActionSortReels, nil)
	if resp.Status != model.StatusNoActiveTab {
		t.Fatalf("expected no active tab, got %+v", resp)
	}
}

func TestServer_MetricsAndHealth(t *testing.T) {
	m := new(metrics.Metrics)
	m.RecordsPersisted.Add(4)
	srv := httptest.NewServer(NewServer(nil, nil, nil, m, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "reeltally_records_persisted_total 4") {
		t.Fatalf("unexpected metrics:\n%s", body)
	}

	h, err := http.Get(srv.URL + "/healthz")
	if err != nil || h.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %v %v", h, err)
	}
	h.Body.Close()
}

func TestClient_TransportFailureIsStatus(t *testing.T) {
	ln, _ := net.Listen("tcp", "127.0.0.1:0")
	addr := ln.Addr().String()
	ln.Close()

	c := NewClient("http://"+addr, httpclient.New(time.Second))
	status, err := c.Track(context.Background(), domain.Record{Link: "https://x/reel/1/"})
	if err == nil {
		t.Fatal("expected transport error")
	}
	if !strings.HasPrefix(status, "Error: ") {
		t.Fatalf("expected error status, got %q", status)
	}
	var ue interface{ Unwrap() error }
	if !errors.As(err, &ue) {
		t.Fatalf("expected wrapped error, got %T", err)
	}
}
