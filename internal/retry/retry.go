// Package retry provides the retry middleware for the platform transport
// pipeline. It implements exponential backoff with full jitter, honors
// server retry guidance through the AfterProvider interface, and never
// retries errors classified as permanent.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Makoq/evalsmith/internal/transport"
)

var (
	// Configuration validation errors.
	errMaxAttemptsInvalid     = errors.New("maxAttempts must be greater than 0")
	errInitialIntervalInvalid = errors.New("initialInterval must be greater than 0")
	errMaxIntervalInvalid     = errors.New("maxInterval must be >= initialInterval")
	errMultiplierInvalid      = errors.New("multiplier must be >= 1.0")
	errMaxElapsedTimeInvalid  = errors.New("maxElapsedTime must be >= 0")

	// Runtime errors.
	errContextCancelledBeforeRetry = errors.New("context cancelled before retry")
	errContextCancelledDuringRetry = errors.New("context cancelled during retry")
	errAllRetriesExhausted         = errors.New("all retries exhausted")
)

// Config controls retry behavior for platform requests.
type Config struct {
	// MaxAttempts is the total number of tries including the first.
	MaxAttempts int

	// InitialInterval is the backoff before the second attempt.
	InitialInterval time.Duration

	// MaxInterval caps the exponential growth of the backoff.
	MaxInterval time.Duration

	// Multiplier scales the interval between attempts.
	Multiplier float64

	// UseJitter randomizes each backoff over [0, interval] to spread
	// concurrent retries.
	UseJitter bool

	// MaxElapsedTime bounds the total time spent across attempts and
	// backoffs; zero disables the bound.
	MaxElapsedTime time.Duration
}

// DefaultConfig returns the retry policy used when the caller provides none.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     4,
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2.0,
		UseJitter:       true,
		MaxElapsedTime:  2 * time.Minute,
	}
}

// Validate checks the policy for internally consistent values.
func (c Config) Validate() error {
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("%w, got %d", errMaxAttemptsInvalid, c.MaxAttempts)
	}
	if c.InitialInterval <= 0 {
		return fmt.Errorf("%w, got %v", errInitialIntervalInvalid, c.InitialInterval)
	}
	if c.MaxInterval < c.InitialInterval {
		return fmt.Errorf("%w, MaxInterval: %v, InitialInterval: %v",
			errMaxIntervalInvalid, c.MaxInterval, c.InitialInterval)
	}
	if c.Multiplier < 1.0 {
		return fmt.Errorf("%w, got %f", errMultiplierInvalid, c.Multiplier)
	}
	if c.MaxElapsedTime < 0 {
		return fmt.Errorf("%w, got %v", errMaxElapsedTimeInvalid, c.MaxElapsedTime)
	}
	return nil
}

// AfterProvider lets error types advise a specific wait before the next
// attempt, so the server can communicate backpressure the client respects.
type AfterProvider interface {
	// GetRetryAfter returns the recommended wait before the next attempt,
	// zero when no specific guidance is available.
	GetRetryAfter() time.Duration
}

// Retryable lets error types declare whether retrying can succeed.
type Retryable interface {
	IsRetryable() bool
}

// Stats is a snapshot of retry middleware counters.
type Stats struct {
	TotalAttempts     int64
	SuccessfulRetries int64
	FailedRetries     int64
}

// retryMiddleware implements retry with exponential backoff and full jitter.
type retryMiddleware struct {
	config Config
	logger *slog.Logger

	totalAttempts     atomic.Int64
	successfulRetries atomic.Int64
	failedRetries     atomic.Int64
}

// NewMiddleware creates retry middleware with the given policy. The policy
// is validated up front; a broken policy is a programming error surfaced at
// construction, not at request time.
func NewMiddleware(cfg Config, logger *slog.Logger) (transport.Middleware, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	rm := &retryMiddleware{
		config: cfg,
		logger: logger.With("component", "retry"),
	}
	return rm.middleware, nil
}

func (r *retryMiddleware) middleware(next transport.Handler) transport.Handler {
	return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		// Fail fast if the context is already done.
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", errContextCancelledBeforeRetry, ctx.Err())
		default:
		}

		var lastErr error
		start := time.Now()

		for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
			if r.config.MaxElapsedTime > 0 && time.Since(start) > r.config.MaxElapsedTime {
				r.logger.Warn("max elapsed time exceeded",
					"elapsed", time.Since(start),
					"attempts", attempt-1,
					"last_error", lastErr)
				break
			}

			resp, err := next.Handle(ctx, req)
			r.totalAttempts.Add(1)

			if err == nil {
				if attempt > 1 {
					r.successfulRetries.Add(1)
					r.logger.Info("request succeeded after retry",
						"attempt", attempt,
						"method", req.Method,
						"path", req.Path)
				}
				return resp, nil
			}

			if !IsRetryable(err) {
				r.logger.Debug("non-retryable error",
					"error", err,
					"attempt", attempt,
					"path", req.Path)
				return nil, err
			}

			lastErr = err
			if attempt == r.config.MaxAttempts {
				break
			}

			backoff := r.backoff(attempt, err)

			// Never let a long server-advised wait push past the overall
			// bound when plain exponential backoff would still fit.
			if r.config.MaxElapsedTime > 0 {
				elapsed := time.Since(start)
				if elapsed+backoff > r.config.MaxElapsedTime {
					exponential := r.exponentialBackoff(attempt)
					if elapsed+exponential > r.config.MaxElapsedTime {
						r.logger.Warn("max elapsed time exceeded",
							"elapsed", elapsed,
							"attempts", attempt,
							"last_error", err)
						break
					}
					backoff = exponential
				}
			}

			r.logger.Debug("retrying after backoff",
				"attempt", attempt,
				"backoff", backoff,
				"error", err,
				"path", req.Path)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", errContextCancelledDuringRetry, ctx.Err())
			}
		}

		r.failedRetries.Add(1)
		if lastErr == nil {
			return nil, errAllRetriesExhausted
		}
		return nil, fmt.Errorf("%w after %d attempts: %w",
			errAllRetriesExhausted, r.config.MaxAttempts, lastErr)
	})
}

// backoff computes the wait before the next attempt, preferring explicit
// server guidance over the exponential schedule.
func (r *retryMiddleware) backoff(attempt int, err error) time.Duration {
	if after := retryAfterOf(err); after > 0 {
		return after
	}
	return r.exponentialBackoff(attempt)
}

// exponentialBackoff computes the capped exponential interval for an
// attempt, with full jitter when enabled.
func (r *retryMiddleware) exponentialBackoff(attempt int) time.Duration {
	interval := r.config.InitialInterval
	for i := 1; i < attempt; i++ {
		interval = time.Duration(float64(interval) * r.config.Multiplier)
		if interval > r.config.MaxInterval {
			interval = r.config.MaxInterval
			break
		}
	}

	if r.config.UseJitter {
		// Full jitter: random in [0, interval].
		jitterMs := rand.Int64N(interval.Milliseconds() + 1)
		return time.Duration(jitterMs) * time.Millisecond
	}
	return interval
}

// Snapshot returns the current counter values.
func (r *retryMiddleware) Snapshot() Stats {
	return Stats{
		TotalAttempts:     r.totalAttempts.Load(),
		SuccessfulRetries: r.successfulRetries.Load(),
		FailedRetries:     r.failedRetries.Load(),
	}
}

// IsRetryable classifies an error for retry eligibility. Typed
// classifications take precedence; network failures and deadline expiry are
// retryable; everything else is permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var retryable Retryable
	if errors.As(err, &retryable) {
		return retryable.IsRetryable()
	}

	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if isNetworkError(err) {
		return true
	}

	var provider AfterProvider
	if errors.As(err, &provider) {
		return provider.GetRetryAfter() > 0
	}

	return false
}

// retryAfterOf extracts server-advised retry guidance from an error chain.
func retryAfterOf(err error) time.Duration {
	var provider AfterProvider
	if errors.As(err, &provider) {
		return provider.GetRetryAfter()
	}
	return 0
}

// isNetworkError detects network-level failures through type assertions
// first, falling back to string patterns only for wrapped opaque errors.
func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		var netErr net.Error
		if errors.As(urlErr.Err, &netErr) {
			return netErr.Timeout()
		}
		return isNetworkErrorByString(urlErr.Err.Error())
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return isNetworkErrorByString(err.Error())
}

func isNetworkErrorByString(errStr string) bool {
	lowered := strings.ToLower(errStr)
	for _, indicator := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"network is unreachable",
		"i/o timeout",
		"eof",
	} {
		if strings.Contains(lowered, indicator) {
			return true
		}
	}
	return false
}
