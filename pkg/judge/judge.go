// Package judge implements LLM-backed evaluators: a pairwise preference
// judge for comparative evaluation and a rubric grader for single-run
// scoring. Providers adapt the OpenAI, Anthropic, and Google SDKs behind one
// completion interface; verdicts are JSON, lightly repaired when the model
// wraps them in markdown fences or leaves trailing commas.
package judge

import (
	"context"
	"errors"
	"log/slog"
)

// Completion defaults. Judging wants low temperature for consistent
// verdicts and modest output budgets.
const (
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 1000
)

// ErrMalformedVerdict indicates the judge model returned something that
// could not be parsed into a verdict, even after transport repair.
var ErrMalformedVerdict = errors.New("malformed judge verdict")

// Request is one judge completion call. The model is bound to the provider
// at construction; the request carries only per-call parameters.
type Request struct {
	// System is the system prompt establishing the judging role.
	System string

	// Prompt is the user prompt carrying the material under judgment.
	Prompt string

	// Temperature controls sampling randomness.
	Temperature float64

	// MaxTokens bounds the completion length.
	MaxTokens int64
}

// Provider completes judge prompts against one LLM backend.
type Provider interface {
	// Name identifies the backend, e.g. "openai".
	Name() string

	// Model identifies the bound model, e.g. "gpt-4o-mini".
	Model() string

	// Complete returns the model's text completion for the request.
	Complete(ctx context.Context, req Request) (string, error)
}

// config carries the tunables shared by the judge evaluators.
type config struct {
	key         string
	temperature float64
	maxTokens   int64
	cache       Cache
	logger      *slog.Logger
}

// Option adjusts a judge evaluator.
type Option func(*config)

// WithKey overrides the feedback key the evaluator reports under.
func WithKey(key string) Option {
	return func(c *config) {
		if key != "" {
			c.key = key
		}
	}
}

// WithTemperature sets the sampling temperature for judge completions.
func WithTemperature(t float64) Option {
	return func(c *config) { c.temperature = t }
}

// WithMaxTokens bounds the judge completion length.
func WithMaxTokens(n int64) Option {
	return func(c *config) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithCache stores verdicts in the given cache, so re-running an evaluation
// does not re-bill unchanged judgments.
func WithCache(cache Cache) Option {
	return func(c *config) { c.cache = cache }
}

// WithLogger routes judge logging to the given logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func newConfig(key string, opts []Option) config {
	cfg := config{
		key:         key,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// complete runs one judge completion, preferring the verdict cache. The
// second return reports a cache hit. Callers write content back with store
// once it has parsed; a completion that never parses stays out of the cache
// and is retried on the next run.
func (c *config) complete(ctx context.Context, provider Provider, system, prompt string) (string, bool, error) {
	if c.cache != nil {
		key := verdictKey(provider.Name(), provider.Model(), system, prompt)
		if content, ok := c.cache.Get(ctx, key); ok {
			c.logger.Debug("verdict cache hit",
				"provider", provider.Name(),
				"model", provider.Model())
			return content, true, nil
		}
	}

	content, err := provider.Complete(ctx, Request{
		System:      system,
		Prompt:      prompt,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", false, err
	}
	return content, false, nil
}

// store caches the raw content of a verdict that parsed.
func (c *config) store(ctx context.Context, provider Provider, system, prompt, content string) {
	if c.cache == nil {
		return
	}
	c.cache.Set(ctx, verdictKey(provider.Name(), provider.Model(), system, prompt), content)
}
