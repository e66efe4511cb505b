package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"golang.org/x/net/html"

	"github.com/rojanmagar2001/reeltally/internal/domain"
	"github.com/rojanmagar2001/reeltally/internal/extract"
)

type recordingSink struct {
	mu  sync.Mutex
	got []domain.Record
}

func (s *recordingSink) Track(_ context.Context, r domain.Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, r)
	return "queued", nil
}

func (s *recordingSink) links() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.got))
	for _, r := range s.got {
		out = append(out, r.Link)
	}
	return out
}

// scriptedThrottle answers Allow from a fixed script, then denies.
type scriptedThrottle struct {
	answers []bool
}

func (s *scriptedThrottle) Allow() bool {
	if len(s.answers) == 0 {
		return false
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a
}

func testExtractor(t *testing.T) *extract.Extractor {
	t.Helper()
	ex, err := extract.New(extract.DefaultSelectors())
	if err != nil {
		t.Fatalf("extractor: %v", err)
	}
	return ex
}

func postHTML(id, views string) string {
	return fmt.Sprintf(`<div class="x1qjc9v5 xw3qccf"><a href="/reel/%s/"><div><div><svg aria-label="View Count Icon"></svg></div><span>%s</span></div></a></div>`, id, views)
}

func feedHTML(posts ...string) string {
	return `<html><body><main><div><div><div><div class="_ac7v">` + strings.Join(posts, "") + `</div></div></div></div></main></body></html>`
}

func parseDoc(t *testing.T, s string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}
