// Package reorder sorts rendered feed items by view count, in place.
package reorder

import (
	"errors"
	"sort"

	"golang.org/x/net/html"

	"github.com/rojanmagar2001/reeltally/internal/extract"
)

const DefaultPerRow = 4

var (
	ErrNoGrid  = errors.New("could not find the main content grid")
	ErrNoPosts = errors.New("no reels/posts found to sort")
)

type Result struct {
	Sorted   int
	Overflow int // items appended straight to the grid
	Views    []int64
}

type item struct {
	n     *html.Node
	views int64
}

// Sort reorders the posts under the grid container by views, highest
// first, refilling the existing rows perRow at a time. When rows run out
// the remaining posts are appended to the grid itself.
func Sort(doc *html.Node, ex *extract.Extractor, perRow int) (Result, error) {
	if perRow <= 0 {
		perRow = DefaultPerRow
	}
	sel := ex.Selectors()

	grid := sel.Grid.MatchFirst(doc)
	if grid == nil {
		return Result{}, ErrNoGrid
	}

	var items []item
	for _, n := range sel.Post.MatchAll(grid) {
		if n == grid {
			continue
		}
		items = append(items, item{n: n, views: ex.Views(n)})
	}
	if len(items) == 0 {
		return Result{}, ErrNoPosts
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].views > items[j].views })

	res := Result{Sorted: len(items), Views: make([]int64, len(items))}
	for i, it := range items {
		res.Views[i] = it.views
	}

	var rows []*html.Node
	for _, r := range sel.Row.MatchAll(grid) {
		if r != grid {
			rows = append(rows, r)
		}
	}

	if len(rows) == 0 {
		for _, it := range items {
			detach(it.n)
			grid.AppendChild(it.n)
		}
		res.Overflow = len(items)
		return res, nil
	}

	for _, r := range rows {
		for c := r.FirstChild; c != nil; c = r.FirstChild {
			r.RemoveChild(c)
		}
	}

	row := 0
	for i, it := range items {
		detach(it.n)
		if row < len(rows) {
			rows[row].AppendChild(it.n)
			if (i+1)%perRow == 0 {
				row++
			}
			continue
		}
		grid.AppendChild(it.n)
		res.Overflow++
	}

	return res, nil
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}
