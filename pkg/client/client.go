// Package client provides the platform SDK: typed operations over the
// evaluation platform's REST API for datasets, examples, experiments, runs,
// and feedback. Every request flows through a resilient transport pipeline
// (rate limiting, retries with backoff, circuit breaking, structured
// logging) assembled at construction.
//
// The client is safe for concurrent use. All blocking operations take a
// context and honor its cancellation.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/Makoq/evalsmith/internal/breaker"
	"github.com/Makoq/evalsmith/internal/ratelimit"
	"github.com/Makoq/evalsmith/internal/retry"
	"github.com/Makoq/evalsmith/internal/transport"
	"github.com/Makoq/evalsmith/pkg/domain"
	"github.com/Makoq/evalsmith/pkg/redact"
)

// Client talks to the evaluation platform. Construct with NewClient; the
// zero value is not usable.
type Client struct {
	config  Config
	handler transport.Handler
	logger  *slog.Logger

	inputs  redact.Pipeline
	outputs redact.Pipeline
}

// NewClient creates a platform client with the full transport pipeline.
// Middleware order, outermost first: logging, circuit breaker, retry, rate
// limit. The rate limiter sits inside retry so a drained bucket surfaces as
// a retryable wait rather than a hard failure; the breaker sits outside so
// an exhausted retry loop counts as a single failure against it.
func NewClient(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				MaxIdleConns:          defaultMaxIdleConns,
				IdleConnTimeout:       defaultIdleConnTimeout,
				TLSHandshakeTimeout:   defaultTLSTimeout,
				ExpectContinueTimeout: time.Second,
			},
			Timeout: cfg.Timeout,
		}
	}

	core := transport.NewHTTPHandler(httpClient, cfg.Endpoint, cfg.APIKey, cfg.UserAgent)

	// Attempt-level middleware runs once per retry attempt.
	attemptHandler := transport.Chain(core, ratelimit.NewMiddleware(cfg.rateLimitConfig()))

	retryMW, err := retry.NewMiddleware(cfg.retryConfig(), cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("invalid retry config: %w", err)
	}
	retryHandler := retryMW(attemptHandler)

	// Call-level middleware sees each logical call exactly once.
	handler := transport.Chain(retryHandler,
		transport.NewLoggingMiddleware(cfg.Logger, cfg.Metrics),
		breaker.NewMiddleware(breaker.New(cfg.breakerConfig(), cfg.Logger)),
	)

	return &Client{
		config:  cfg,
		handler: handler,
		logger:  cfg.Logger.With("component", "client"),
		inputs:  redact.Pipeline{Anonymizer: cfg.Anonymizer, Hide: cfg.HideInputs},
		outputs: redact.Pipeline{Anonymizer: cfg.Anonymizer, Hide: cfg.HideOutputs},
	}, nil
}

// do issues a request through the pipeline and decodes the JSON response
// into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := c.handler.Handle(ctx, &transport.Request{
		Method: method,
		Path:   path,
		Query:  query,
		Body:   body,
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// notFound rewrites a 404 from the platform into the domain's typed
// not-found error so callers can branch on errors.Is(err, domain.ErrNotFound)
// without knowing transport details.
func notFound(err error, resource, ref string) error {
	var apiErr *transport.APIError
	if errors.As(err, &apiErr) && apiErr.NotFound() {
		return &domain.NotFoundError{Resource: resource, Ref: ref}
	}
	return err
}

// redactInputs applies the configured capture policy to an input payload,
// with fn overriding the client-level stages when non-nil.
func (c *Client) redactInputs(payload map[string]any, fn redact.Processor) map[string]any {
	p := c.inputs
	p.Processor = fn
	return p.Apply(payload)
}

// redactOutputs applies the configured capture policy to an output payload,
// with fn overriding the client-level stages when non-nil.
func (c *Client) redactOutputs(payload map[string]any, fn redact.Processor) map[string]any {
	p := c.outputs
	p.Processor = fn
	return p.Apply(payload)
}
