// Package ratelimit provides client-side request throttling for the
// platform transport pipeline. A local token bucket bounds outbound request
// rate; when the bucket is empty the middleware fails fast with a
// retry-after hint instead of queueing, letting the retry layer schedule
// the wait.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/time/rate"

	"github.com/Makoq/evalsmith/internal/transport"
)

// Config controls the local token bucket.
type Config struct {
	// RequestsPerSecond is the sustained request rate. Zero or negative
	// disables throttling.
	RequestsPerSecond float64

	// Burst is the bucket capacity. Values below 1 are raised to 1 so a
	// configured limiter can always make progress.
	Burst int
}

// DefaultConfig returns the throttle applied when the caller provides none.
func DefaultConfig() Config {
	return Config{RequestsPerSecond: 10, Burst: 20}
}

// Error reports a request rejected by the local limiter. It carries the
// delay after which the bucket will have capacity, with a one second floor
// to keep retry loops from spinning.
type Error struct {
	// Limit is the configured sustained rate.
	Limit float64

	// RetryAfter is when the next token will be available.
	RetryAfter time.Duration
}

// Error returns a formatted message with the configured limit.
func (e *Error) Error() string {
	return fmt.Sprintf("client rate limit of %.2f req/s exceeded, retry in %s", e.Limit, e.RetryAfter)
}

// IsRetryable reports true; rate limits always clear with time.
func (e *Error) IsRetryable() bool { return true }

// GetRetryAfter returns the advised wait before the next attempt.
func (e *Error) GetRetryAfter() time.Duration { return e.RetryAfter }

// NewMiddleware creates throttling middleware with the given config. A
// non-positive rate yields a pass-through middleware.
func NewMiddleware(cfg Config) transport.Middleware {
	if cfg.RequestsPerSecond <= 0 {
		return func(next transport.Handler) transport.Handler { return next }
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)

	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			if !limiter.Allow() {
				// Compute the delay without consuming a token so failed
				// requests do not leak bucket capacity.
				reservation := limiter.Reserve()
				delay := reservation.Delay()
				reservation.Cancel()

				// Floor at one second to prevent tight retry loops.
				retryAfter := time.Duration(math.Ceil(delay.Seconds())) * time.Second
				if retryAfter < time.Second {
					retryAfter = time.Second
				}

				return nil, &Error{
					Limit:      cfg.RequestsPerSecond,
					RetryAfter: retryAfter,
				}
			}

			return next.Handle(ctx, req)
		})
	}
}
