package extract

import (
	"fmt"

	"github.com/andybalholm/cascadia"
)

// Selectors locate feed structure. They follow the site's markup and
// break when it changes, so they are configuration, not code.
type Selectors struct {
	Post      string `yaml:"post"`
	Permalink string `yaml:"permalink"`
	ViewIcon  string `yaml:"view_icon"`
	Grid      string `yaml:"grid"`
	Row       string `yaml:"row"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		Post:      "div.x1qjc9v5.xw3qccf",
		Permalink: "a[href]",
		ViewIcon:  `svg[aria-label="View Count Icon"]`,
		Grid:      "main > div > div > div:last-child",
		Row:       "div._ac7v",
	}
}

// withDefaults fills empty fields from DefaultSelectors.
func (s Selectors) withDefaults() Selectors {
	d := DefaultSelectors()
	if s.Post == "" {
		s.Post = d.Post
	}
	if s.Permalink == "" {
		s.Permalink = d.Permalink
	}
	if s.ViewIcon == "" {
		s.ViewIcon = d.ViewIcon
	}
	if s.Grid == "" {
		s.Grid = d.Grid
	}
	if s.Row == "" {
		s.Row = d.Row
	}
	return s
}

type Compiled struct {
	Post      cascadia.Selector
	Permalink cascadia.Selector
	ViewIcon  cascadia.Selector
	Grid      cascadia.Selector
	Row       cascadia.Selector
}

func (s Selectors) Compile() (*Compiled, error) {
	s = s.withDefaults()

	var c Compiled
	for _, f := range []struct {
		name string
		src  string
		dst  *cascadia.Selector
	}{
		{"post", s.Post, &c.Post},
		{"permalink", s.Permalink, &c.Permalink},
		{"view_icon", s.ViewIcon, &c.ViewIcon},
		{"grid", s.Grid, &c.Grid},
		{"row", s.Row, &c.Row},
	} {
		sel, err := cascadia.Compile(f.src)
		if err != nil {
			return nil, fmt.Errorf("compile %s selector %q: %w", f.name, f.src, err)
		}
		*f.dst = sel
	}
	return &c, nil
}
