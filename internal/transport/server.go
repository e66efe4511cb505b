// Package transport carries the four-action message contract over HTTP
// JSON: POST /message {"action": ..., "data": ...} -> {"status": ...}.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rojanmagar2001/reeltally/internal/domain"
	"github.com/rojanmagar2001/reeltally/internal/metrics"
	"github.com/rojanmagar2001/reeltally/internal/model"
	"github.com/rojanmagar2001/reeltally/internal/reorder"
	"github.com/rojanmagar2001/reeltally/internal/usecase"
)

const maxRequestBytes = 1 << 20

type Tracker interface {
	Enqueue(r domain.Record) error
}

type Exporter interface {
	Export(ctx context.Context) (location string, count int, err error)
	Clear(ctx context.Context) error
}

type Sorter interface {
	Sort(ctx context.Context) (reorder.Result, error)
}

type Server struct {
	tracker  Tracker
	exporter Exporter
	sorter   Sorter
	m        *metrics.Metrics
	log      *slog.Logger
}

func NewServer(tracker Tracker, exporter Exporter, sorter Sorter, m *metrics.Metrics, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if m == nil {
		m = new(metrics.Metrics)
	}
	return &Server{tracker: tracker, exporter: exporter, sorter: sorter, m: m, log: log}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /message", s.handleMessage)
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_ = s.m.WriteText(w)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req model.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.Response{Status: model.ErrorStatus(fmt.Errorf("decode request: %w", err))})
		return
	}

	code, resp := s.Dispatch(r.Context(), req)
	writeJSON(w, code, resp)
}

// Dispatch runs one action and maps the outcome to a status string. Every
// failure becomes a status; nothing is returned as an error.
func (s *Server) Dispatch(ctx context.Context, req model.Request) (int, model.Response) {
	log := s.log.With("action", string(req.Action))

	switch req.Action {
	case model.ActionTrackReel:
		var rec domain.Record
		if len(req.Data) == 0 || json.Unmarshal(req.Data, &rec) != nil || !rec.Valid() {
			return http.StatusBadRequest, model.Response{Status: model.StatusInvalidReel}
		}
		if err := s.tracker.Enqueue(rec); err != nil {
			log.Error("enqueue failed", "link", rec.Link, "err", err)
			return http.StatusServiceUnavailable, model.Response{Status: model.ErrorStatus(err)}
		}
		return http.StatusOK, model.Response{Status: model.StatusQueued}

	case model.ActionDownloadData:
		_, _, err := s.exporter.Export(ctx)
		switch {
		case err == nil:
			return http.StatusOK, model.Response{Status: model.StatusDownloadOK}
		case errors.Is(err, domain.ErrNoData):
			return http.StatusOK, model.Response{Status: model.StatusNoData}
		case errors.Is(err, usecase.ErrDownload):
			return http.StatusOK, model.Response{Status: model.StatusDownloadFailed}
		default:
			return http.StatusOK, model.Response{Status: model.StatusDownloadReadErr}
		}

	case model.ActionClearData:
		if err := s.exporter.Clear(ctx); err != nil {
			return http.StatusOK, model.Response{Status: model.StatusClearErr}
		}
		return http.StatusOK, model.Response{Status: model.StatusCleared}

	case model.ActionSortReels:
		if s.sorter == nil {
			return http.StatusOK, model.Response{Status: model.StatusNoActiveTab}
		}
		res, err := s.sorter.Sort(ctx)
		switch {
		case errors.Is(err, domain.ErrNoActiveTab):
			return http.StatusOK, model.Response{Status: model.StatusNoActiveTab}
		case err != nil:
			log.Warn("sort failed", "err", err)
			return http.StatusOK, model.Response{Status: model.ErrorStatus(err)}
		}
		return http.StatusOK, model.Response{Status: fmt.Sprintf("Sorted %d reels", res.Sorted)}

	default:
		log.Warn("unknown action")
		return http.StatusBadRequest, model.Response{Status: model.StatusUnknownAction}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
