package transport

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Metrics collects observability data for platform API traffic. Counters,
// histograms, and gauges carry tag-based dimensions so callers can slice by
// method, path, and status.
type Metrics interface {
	IncrementCounter(name string, tags map[string]string, value float64)
	RecordHistogram(name string, tags map[string]string, value float64)
	SetGauge(name string, tags map[string]string, value float64)
}

// NoOpMetrics satisfies Metrics without collecting anything. It is the
// default when no collector is configured.
type NoOpMetrics struct{}

// NewNoOpMetrics creates a metrics collector that discards all data.
func NewNoOpMetrics() *NoOpMetrics { return &NoOpMetrics{} }

func (n *NoOpMetrics) IncrementCounter(_ string, _ map[string]string, _ float64) {}

func (n *NoOpMetrics) RecordHistogram(_ string, _ map[string]string, _ float64) {}

func (n *NoOpMetrics) SetGauge(_ string, _ map[string]string, _ float64) {}

// loggingMiddleware captures structured logs and metrics for every request
// through the pipeline. Bodies are never logged; only shape and outcome.
type loggingMiddleware struct {
	logger  *slog.Logger
	metrics Metrics
}

// NewLoggingMiddleware creates observability middleware. A nil logger falls
// back to slog.Default, a nil metrics collector to NoOpMetrics.
func NewLoggingMiddleware(logger *slog.Logger, metrics Metrics) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewNoOpMetrics()
	}
	lm := &loggingMiddleware{logger: logger, metrics: metrics}
	return lm.middleware
}

func (m *loggingMiddleware) middleware(next Handler) Handler {
	return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
		requestID := uuid.New().String()
		tags := map[string]string{
			"method": req.Method,
			"path":   req.Path,
		}

		m.logger.DebugContext(ctx, "platform request started",
			"request_id", requestID,
			"method", req.Method,
			"path", req.Path,
		)
		m.metrics.IncrementCounter("platform.requests.total", tags, 1)

		start := time.Now()
		resp, err := next.Handle(ctx, req)
		duration := time.Since(start)

		m.metrics.RecordHistogram("platform.request.duration_ms", tags, float64(duration.Milliseconds()))

		if err != nil {
			errTags := copyTags(tags)
			errTags["status"] = errorStatusTag(err)
			m.metrics.IncrementCounter("platform.requests.errors", errTags, 1)

			m.logger.ErrorContext(ctx, "platform request failed",
				"request_id", requestID,
				"method", req.Method,
				"path", req.Path,
				"duration_ms", duration.Milliseconds(),
				"error", err.Error(),
			)
			return resp, err
		}

		m.metrics.IncrementCounter("platform.requests.success", tags, 1)
		m.logger.DebugContext(ctx, "platform request completed",
			"request_id", requestID,
			"method", req.Method,
			"path", req.Path,
			"status", resp.StatusCode,
			"duration_ms", duration.Milliseconds(),
			"body_bytes", len(resp.Body),
		)
		return resp, nil
	})
}

// errorStatusTag classifies an error for the metrics status dimension.
func errorStatusTag(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return strconv.Itoa(apiErr.StatusCode)
	}
	return "transport"
}

// copyTags clones a tag map so per-call annotations never leak between
// metric calls.
func copyTags(original map[string]string) map[string]string {
	tagsCopy := make(map[string]string, len(original))
	for k, v := range original {
		tagsCopy[k] = v
	}
	return tagsCopy
}
