package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/rojanmagar2001/reeltally/internal/ports"
)

var (
	ErrHTTPStatus   = errors.New("unexpected http status")
	ErrBodyTooLarge = errors.New("page exceeds size limit")
)

// Fetcher loads a page rendering from an http(s) URL or a local file.
type Fetcher struct {
	Client      ports.HTTPClient
	Limiter     ports.Limiter
	UserAgent   string
	MaxBodyRead int64
}

func New(client ports.HTTPClient, limiter ports.Limiter, userAgent string) *Fetcher {
	return &Fetcher{
		Client:      client,
		Limiter:     limiter,
		UserAgent:   userAgent,
		MaxBodyRead: 16 << 20, // 16MB safety cap
	}
}

func (f *Fetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	lower := strings.ToLower(source)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return f.get(ctx, source)
	case strings.HasPrefix(lower, "file://"):
		return f.readFile(source[len("file://"):])
	default:
		return f.readFile(source)
	}
}

func (f *Fetcher) get(ctx context.Context, link string) ([]byte, error) {
	if f.Limiter != nil {
		if err := f.Limiter.Take(ctx, link); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode)
	}

	// One byte past the cap tells a full page from a truncated one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.MaxBodyRead+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.MaxBodyRead {
		return nil, fmt.Errorf("%w: more than %d bytes from %s", ErrBodyTooLarge, f.MaxBodyRead, link)
	}
	return body, nil
}

func (f *Fetcher) readFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read page file: %w", err)
	}
	if int64(len(b)) > f.MaxBodyRead {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrBodyTooLarge, path, len(b), f.MaxBodyRead)
	}
	return b, nil
}
