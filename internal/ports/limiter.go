package ports

import "context"

type Limiter interface {
	Take(ctx context.Context, rawURL string) error
}

// Throttle admits at most one event per window; Allow reports whether the
// caller may proceed now. Rejected events are dropped, not deferred.
type Throttle interface {
	Allow() bool
}
