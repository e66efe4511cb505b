package limiter

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rojanmagar2001/reeltally/internal/ports"
)

// PerHost applies a global request rate plus a per-host rate.
type PerHost struct {
	global *rate.Limiter

	mu   sync.Mutex
	rate rate.Limit
	host map[string]*rate.Limiter
}

func New(globalRate, perHostRate int) ports.Limiter {
	if globalRate <= 0 {
		globalRate = 10
	}
	if perHostRate <= 0 {
		perHostRate = 2
	}
	return &PerHost{
		global: rate.NewLimiter(rate.Limit(globalRate), globalRate),
		rate:   rate.Limit(perHostRate),
		host:   make(map[string]*rate.Limiter),
	}
}

func (h *PerHost) Take(ctx context.Context, rawURL string) error {
	if err := h.global.Wait(ctx); err != nil {
		return err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil // invalid URL already handled elsewhere
	}
	host := u.Hostname()
	if host == "" {
		return nil
	}

	h.mu.Lock()
	l, ok := h.host[host]
	if !ok {
		l = rate.NewLimiter(h.rate, int(h.rate))
		h.host[host] = l
	}
	h.mu.Unlock()

	return l.Wait(ctx)
}

// Window admits one event per interval and drops the rest.
type Window struct {
	l *rate.Limiter
}

func NewWindow(interval time.Duration) *Window {
	if interval <= 0 {
		return &Window{l: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Window{l: rate.NewLimiter(rate.Every(interval), 1)}
}

func (w *Window) Allow() bool {
	return w.l.Allow()
}
