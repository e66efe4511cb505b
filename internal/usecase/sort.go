package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/net/html"

	"github.com/rojanmagar2001/reeltally/internal/domain"
	"github.com/rojanmagar2001/reeltally/internal/extract"
	"github.com/rojanmagar2001/reeltally/internal/reorder"
)

// PageSorter reorders the feed items of a saved page file in place. The
// file plays the part of the active tab.
type PageSorter struct {
	page   string
	ex     *extract.Extractor
	perRow int
	log    *slog.Logger
}

func NewPageSorter(page string, ex *extract.Extractor, perRow int, log *slog.Logger) *PageSorter {
	if log == nil {
		log = slog.Default()
	}
	return &PageSorter{page: page, ex: ex, perRow: perRow, log: log}
}

func (s *PageSorter) Sort(ctx context.Context) (reorder.Result, error) {
	if s.page == "" {
		return reorder.Result{}, domain.ErrNoActiveTab
	}
	if err := ctx.Err(); err != nil {
		return reorder.Result{}, err
	}

	raw, err := os.ReadFile(s.page)
	if err != nil {
		if os.IsNotExist(err) {
			return reorder.Result{}, domain.ErrNoActiveTab
		}
		return reorder.Result{}, fmt.Errorf("read page: %w", err)
	}

	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return reorder.Result{}, fmt.Errorf("parse page: %w", err)
	}

	res, err := reorder.Sort(doc, s.ex, s.perRow)
	if err != nil {
		s.log.Warn("sort skipped", "page", s.page, "err", err)
		return res, err
	}
	if res.Overflow > 0 {
		s.log.Warn("ran out of row containers, appended to grid", "overflow", res.Overflow)
	}

	var out bytes.Buffer
	if err := html.Render(&out, doc); err != nil {
		return res, fmt.Errorf("render page: %w", err)
	}
	if err := writeFileAtomic(s.page, out.Bytes()); err != nil {
		return res, err
	}

	s.log.Info("reordering finished", "page", s.page, "sorted", res.Sorted)
	return res, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".reeltally-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace page: %w", err)
	}
	return nil
}
