package ports

import (
	"context"

	"github.com/rojanmagar2001/reeltally/internal/domain"
)

// Sink receives records that passed the session dedup gate. It returns the
// status reported by the receiving side.
type Sink interface {
	Track(ctx context.Context, r domain.Record) (status string, err error)
}

// Downloader hands finished export content to the user.
type Downloader interface {
	Download(ctx context.Context, filename string, content []byte) (location string, err error)
}

// Fetcher returns the current rendering of a feed page.
type Fetcher interface {
	Fetch(ctx context.Context, source string) ([]byte, error)
}
