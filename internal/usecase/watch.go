package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/net/html"

	"github.com/rojanmagar2001/reeltally/internal/ports"
)

// Watcher polls a feed source and replays what changed as page events:
// the first poll is the initial pass, every later poll is a scroll, and
// post containers that were not in the previous poll are a mutation.
type Watcher struct {
	fetcher  ports.Fetcher
	posts    func(*html.Node) []*html.Node
	interval time.Duration
	maxPolls int
	log      *slog.Logger
}

func NewWatcher(fetcher ports.Fetcher, posts func(*html.Node) []*html.Node, interval time.Duration, maxPolls int, log *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{
		fetcher:  fetcher,
		posts:    posts,
		interval: interval,
		maxPolls: maxPolls,
		log:      log,
	}
}

// Watch runs until ctx is done or maxPolls polls have completed
// (maxPolls <= 0 means no limit). Fetch and parse failures are logged and
// the next poll proceeds.
func (w *Watcher) Watch(ctx context.Context, source string, obs *Observer) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var prev map[string]*html.Node
	started := false

	for polls := 0; w.maxPolls <= 0 || polls < w.maxPolls; polls++ {
		if polls > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}

		doc, err := w.poll(ctx, source)
		if err != nil {
			w.log.Warn("poll failed", "source", source, "err", err)
			continue
		}

		order, cur := w.index(doc)
		if !started {
			n := obs.Start(ctx, doc)
			w.log.Info("initial pass", "source", source, "posts", len(cur), "submitted", n)
			started = true
			prev = cur
			continue
		}

		var inserted []*html.Node
		for _, k := range order {
			if _, ok := prev[k]; !ok {
				inserted = append(inserted, cur[k])
			}
		}
		if len(inserted) > 0 {
			obs.OnMutation(ctx, inserted)
		}
		obs.OnScroll(ctx, doc)
		prev = cur
	}
	return nil
}

func (w *Watcher) poll(ctx context.Context, source string) (*html.Node, error) {
	body, err := w.fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// index keys every post container by its rendered markup. order lists
// the keys in document order.
func (w *Watcher) index(doc *html.Node) (order []string, nodes map[string]*html.Node) {
	nodes = make(map[string]*html.Node)
	for _, n := range w.posts(doc) {
		var buf bytes.Buffer
		if err := html.Render(&buf, n); err != nil {
			continue
		}
		k := buf.String()
		if _, ok := nodes[k]; !ok {
			nodes[k] = n
			order = append(order, k)
		}
	}
	return order, nodes
}
