// Package breaker provides a circuit breaker for the platform transport
// pipeline. Sustained failures open the circuit and shed requests
// immediately; after a cooldown a bounded number of probes test recovery
// before the circuit closes again.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/Makoq/evalsmith/internal/transport"
)

// jitterDivisor sizes cooldown jitter as a fraction of the open timeout,
// spreading recovery probes from concurrent clients.
const jitterDivisor = 10

// ErrOpen is returned for requests shed while the circuit is open or while
// all half-open probe slots are taken.
var ErrOpen = errors.New("circuit breaker open")

// State is the circuit state machine position.
type State int32

const (
	// StateClosed allows requests through.
	StateClosed State = iota
	// StateOpen sheds all requests until the cooldown elapses.
	StateOpen
	// StateHalfOpen allows a bounded number of probe requests.
	StateHalfOpen
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config controls circuit breaker behavior.
type Config struct {
	// FailureThreshold is the consecutive failure count that opens the
	// circuit from closed.
	FailureThreshold int

	// SuccessThreshold is the probe success count that closes the circuit
	// from half-open.
	SuccessThreshold int

	// OpenTimeout is the cooldown before an open circuit admits probes.
	OpenTimeout time.Duration

	// HalfOpenProbes bounds concurrent probe requests in half-open.
	HalfOpenProbes int
}

// DefaultConfig returns the breaker policy used when the caller provides none.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
		HalfOpenProbes:   1,
	}
}

// Breaker is a lock-free circuit breaker. State transitions use
// compare-and-swap so concurrent outcomes never double-transition.
type Breaker struct {
	state           atomic.Int32
	failures        atomic.Int32
	successes       atomic.Int32
	lastFailureTime atomic.Int64
	halfOpenProbes  atomic.Int32

	failureThreshold  int
	successThreshold  int
	openTimeout       time.Duration
	maxHalfOpenProbes int

	logger *slog.Logger
}

// New creates a breaker in the closed state. Non-positive thresholds fall
// back to defaults so a zero config still yields a working breaker.
func New(cfg Config, logger *slog.Logger) *Breaker {
	def := DefaultConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	if cfg.HalfOpenProbes <= 0 {
		cfg.HalfOpenProbes = def.HalfOpenProbes
	}
	if logger == nil {
		logger = slog.Default()
	}

	b := &Breaker{
		failureThreshold:  cfg.FailureThreshold,
		successThreshold:  cfg.SuccessThreshold,
		openTimeout:       cfg.OpenTimeout,
		maxHalfOpenProbes: cfg.HalfOpenProbes,
		logger:            logger.With("component", "breaker"),
	}
	b.state.Store(int32(StateClosed))
	return b
}

// State returns the current state.
func (b *Breaker) State() State { return State(b.state.Load()) }

// jitter returns a random duration up to a tenth of the open timeout.
func (b *Breaker) jitter() time.Duration {
	jit := b.openTimeout / jitterDivisor
	if jit <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(jit)))
}

// allow decides whether a request may proceed. The returned release
// function must run when the request completes; it frees the half-open
// probe slot the request holds, and is a no-op otherwise.
func (b *Breaker) allow() (release func(), err error) {
	noop := func() {}

	switch State(b.state.Load()) {
	case StateClosed:
		return noop, nil

	case StateOpen:
		lastFailure := time.Unix(0, b.lastFailureTime.Load())
		if time.Since(lastFailure) <= b.openTimeout+b.jitter() {
			return noop, fmt.Errorf("%w: cooling down", ErrOpen)
		}
		b.transitionTo(StateHalfOpen)
		return b.acquireProbe()

	case StateHalfOpen:
		return b.acquireProbe()

	default:
		return noop, fmt.Errorf("%w: unknown state", ErrOpen)
	}
}

// acquireProbe claims a half-open probe slot via CAS, failing when all
// slots are in flight.
func (b *Breaker) acquireProbe() (func(), error) {
	for {
		current := b.halfOpenProbes.Load()
		if int(current) >= b.maxHalfOpenProbes {
			return func() {}, fmt.Errorf("%w: probe limit reached", ErrOpen)
		}
		if b.halfOpenProbes.CompareAndSwap(current, current+1) {
			release := func() {
				// Saturate at zero; a concurrent transition may have reset
				// the counter already.
				for {
					cur := b.halfOpenProbes.Load()
					if cur == 0 {
						return
					}
					if b.halfOpenProbes.CompareAndSwap(cur, cur-1) {
						return
					}
				}
			}
			return release, nil
		}
	}
}

// recordSuccess counts a success, closing the circuit once enough half-open
// probes have succeeded.
func (b *Breaker) recordSuccess() {
	for {
		state := b.state.Load()
		switch State(state) {
		case StateClosed:
			b.failures.Store(0)
			return

		case StateHalfOpen:
			successes := b.successes.Add(1)
			if int(successes) >= b.successThreshold {
				if b.state.CompareAndSwap(state, int32(StateClosed)) {
					b.resetCounters()
					b.logger.Info("circuit breaker state transition",
						"from", StateHalfOpen.String(), "to", StateClosed.String())
					return
				}
				b.successes.Add(-1)
				continue
			}
			return

		case StateOpen:
			return
		}
	}
}

// recordFailure counts a failure, opening the circuit from closed at the
// threshold and immediately from half-open.
func (b *Breaker) recordFailure() {
	b.lastFailureTime.Store(time.Now().UnixNano())

	for {
		state := b.state.Load()
		switch State(state) {
		case StateClosed:
			failures := b.failures.Add(1)
			if int(failures) >= b.failureThreshold {
				if b.state.CompareAndSwap(state, int32(StateOpen)) {
					b.resetCounters()
					b.logger.Info("circuit breaker state transition",
						"from", StateClosed.String(), "to", StateOpen.String())
					return
				}
				continue
			}
			return

		case StateHalfOpen:
			if b.state.CompareAndSwap(state, int32(StateOpen)) {
				b.resetCounters()
				b.logger.Info("circuit breaker state transition",
					"from", StateHalfOpen.String(), "to", StateOpen.String())
				return
			}
			continue

		case StateOpen:
			return
		}
	}
}

func (b *Breaker) resetCounters() {
	b.failures.Store(0)
	b.successes.Store(0)
	b.halfOpenProbes.Store(0)
}

func (b *Breaker) transitionTo(newState State) {
	oldState := State(b.state.Swap(int32(newState)))
	if oldState == newState {
		return
	}
	switch newState {
	case StateClosed, StateOpen:
		b.resetCounters()
	case StateHalfOpen:
		b.successes.Store(0)
		b.halfOpenProbes.Store(0)
	}
	b.logger.Info("circuit breaker state transition",
		"from", oldState.String(), "to", newState.String())
}

// NewMiddleware wraps the transport pipeline with the breaker. Context
// cancellation is not counted as a service failure; everything else is.
func NewMiddleware(b *Breaker) transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			release, err := b.allow()
			if err != nil {
				return nil, err
			}
			defer release()

			resp, err := next.Handle(ctx, req)
			switch {
			case err == nil:
				b.recordSuccess()
			case errors.Is(err, context.Canceled):
				// Caller walked away; says nothing about service health.
			default:
				b.recordFailure()
			}
			return resp, err
		})
	}
}
