package ports

import (
	"net/url"

	"golang.org/x/net/html"

	"github.com/rojanmagar2001/reeltally/internal/domain"
)

type Extractor interface {
	Extract(base *url.URL, roots ...*html.Node) []domain.Record
}
