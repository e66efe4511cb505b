package extract

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/rojanmagar2001/reeltally/internal/domain"
)

// Extractor finds post containers and reads a Record out of each.
// It never modifies the tree.
type Extractor struct {
	sel *Compiled
}

func New(s Selectors) (*Extractor, error) {
	c, err := s.Compile()
	if err != nil {
		return nil, err
	}
	return &Extractor{sel: c}, nil
}

func (e *Extractor) Selectors() *Compiled { return e.sel }

// ExtractReader parses a full document and extracts from its root.
func (e *Extractor) ExtractReader(baseURL string, r io.Reader) ([]domain.Record, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	return e.Extract(base, doc), nil
}

// Extract scans each root (the root itself included) for posts. Posts
// without an accepted permalink are skipped; a link seen twice in one
// call is reported once.
func (e *Extractor) Extract(base *url.URL, roots ...*html.Node) []domain.Record {
	seen := make(map[string]struct{})
	var out []domain.Record

	for _, root := range roots {
		if root == nil {
			continue
		}
		for _, post := range e.sel.Post.MatchAll(root) {
			link, ok := e.Permalink(base, post)
			if !ok {
				continue
			}
			if _, dup := seen[link]; dup {
				continue
			}
			seen[link] = struct{}{}
			out = append(out, domain.Record{Link: link, Views: e.Views(post)})
		}
	}

	return out
}

// Permalink returns the normalized post URL for a container, looking
// first inside it and then at the enclosing anchor.
func (e *Extractor) Permalink(base *url.URL, post *html.Node) (string, bool) {
	var href string
	if a := e.sel.Permalink.MatchFirst(post); a != nil {
		href = attr(a, "href")
	}
	if href == "" {
		for p := post.Parent; p != nil; p = p.Parent {
			if p.Type == html.ElementNode && p.Data == "a" {
				href = attr(p, "href")
				break
			}
		}
	}
	return normalizeLink(base, href)
}

// Views reads the count next to the view icon. A post without the icon
// has 0 views.
func (e *Extractor) Views(post *html.Node) int64 {
	icon := e.sel.ViewIcon.MatchFirst(post)
	if icon == nil {
		return 0
	}

	wrapper := closest(icon, "div")
	if wrapper == nil {
		return 0
	}
	span := nextElementSibling(wrapper)
	if span == nil || span.Data != "span" {
		return 0
	}
	return ParseViewCount(textContent(span))
}

func normalizeLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if base != nil {
		u = base.ResolveReference(u)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", false
	}

	if !isPostPath(u.Path) {
		return "", false
	}

	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	return u.String(), true
}

func isPostPath(p string) bool {
	for _, seg := range []string{"/p/", "/reel/", "/reels/"} {
		i := strings.Index(p, seg)
		if i >= 0 && len(p) > i+len(seg) {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func closest(n *html.Node, tag string) *html.Node {
	for ; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && n.Data == tag {
			return n
		}
	}
	return nil
}

func nextElementSibling(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
