package evaluate

import (
	"log/slog"
	"math/rand/v2"

	"github.com/Makoq/evalsmith/pkg/domain"
)

// DefaultMaxConcurrency bounds in-flight evaluator invocations when the
// caller does not override it. Evaluators are frequently LLM calls with
// multi-second latency, so the bound is a backpressure mechanism, not an
// error condition: excess work queues.
const DefaultMaxConcurrency = 5

// Options configures an orchestrator invocation. Construct through the
// With* functions.
type Options struct {
	randomizeOrder   bool
	experimentPrefix string
	maxConcurrency   int
	loadNested       bool
	rng              *rand.Rand
	logger           *slog.Logger
	progress         func(done, total int)
	filter           *domain.ExampleFilter
	metadata         map[string]any
}

// Option customizes an orchestrator invocation.
type Option func(*Options)

// WithRandomizeOrder shuffles the two-run ordering handed to each evaluator,
// decided once per example pair, to counter positional bias in judges.
func WithRandomizeOrder() Option {
	return func(o *Options) { o.randomizeOrder = true }
}

// WithExperimentPrefix names the created experiment after the given prefix
// instead of the derived default.
func WithExperimentPrefix(prefix string) Option {
	return func(o *Options) { o.experimentPrefix = prefix }
}

// WithMaxConcurrency bounds concurrently in-flight evaluator invocations.
// Values below one fall back to DefaultMaxConcurrency.
func WithMaxConcurrency(n int) Option {
	return func(o *Options) { o.maxConcurrency = n }
}

// WithLoadNested fetches full run trees, child runs included, so evaluators
// can score intermediate steps. Without it only root-level run data loads.
func WithLoadNested() Option {
	return func(o *Options) { o.loadNested = true }
}

// WithRand supplies the randomness source for pair-order shuffling, so tests
// can seed it. Without it the shared global source is used.
func WithRand(r *rand.Rand) Option {
	return func(o *Options) { o.rng = r }
}

// WithLogger routes orchestrator logs to the given logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) { o.logger = logger }
}

// WithProgress registers a callback invoked after each evaluator invocation
// completes, with the number done so far and the total in scope. Calls are
// serialized; the callback needs no locking.
func WithProgress(fn func(done, total int)) Option {
	return func(o *Options) { o.progress = fn }
}

// WithExampleFilter narrows the examples evaluated by the single-experiment
// orchestrator. The comparative orchestrator ignores it: its scope is the
// example intersection of the compared experiments.
func WithExampleFilter(filter *domain.ExampleFilter) Option {
	return func(o *Options) { o.filter = filter }
}

// WithMetadata annotates the created experiment record.
func WithMetadata(meta map[string]any) Option {
	return func(o *Options) { o.metadata = meta }
}

func buildOptions(opts []Option) Options {
	o := Options{
		maxConcurrency: DefaultMaxConcurrency,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxConcurrency < 1 {
		o.maxConcurrency = DefaultMaxConcurrency
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// flip returns a fair coin toss from the configured source.
func (o *Options) flip() bool {
	if o.rng != nil {
		return o.rng.IntN(2) == 1
	}
	return rand.IntN(2) == 1
}
