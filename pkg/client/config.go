package client

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Makoq/evalsmith/internal/breaker"
	"github.com/Makoq/evalsmith/internal/ratelimit"
	"github.com/Makoq/evalsmith/internal/retry"
	"github.com/Makoq/evalsmith/pkg/redact"
)

// validate is the package-level validator instance for config validation.
var validate = validator.New(validator.WithRequiredStructEnabled())

// DefaultEndpoint is the hosted platform API.
const DefaultEndpoint = "https://api.evalsmith.io"

// Default HTTP client tuning.
const (
	defaultTimeout         = 30 * time.Second
	defaultMaxIdleConns    = 100
	defaultIdleConnTimeout = 90 * time.Second
	defaultTLSTimeout      = 10 * time.Second
)

// Metrics collects observability data for client operations. It mirrors the
// transport layer's collector so one implementation serves both.
type Metrics interface {
	IncrementCounter(name string, tags map[string]string, value float64)
	RecordHistogram(name string, tags map[string]string, value float64)
	SetGauge(name string, tags map[string]string, value float64)
}

// RetryConfig controls retry behavior for platform requests.
type RetryConfig struct {
	MaxAttempts     int           `json:"max_attempts"`     // Total tries including the first
	InitialInterval time.Duration `json:"initial_interval"` // Backoff before the second attempt
	MaxInterval     time.Duration `json:"max_interval"`     // Cap on backoff growth
	Multiplier      float64       `json:"multiplier"`       // Exponential backoff multiplier
	UseJitter       bool          `json:"use_jitter"`       // Full jitter randomization
	MaxElapsedTime  time.Duration `json:"max_elapsed_time"` // Total time budget across attempts
}

// RateLimitConfig controls the client-side token bucket.
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second"` // Sustained rate; 0 disables
	Burst             int     `json:"burst"`               // Bucket capacity
}

// BreakerConfig controls the transport circuit breaker.
type BreakerConfig struct {
	FailureThreshold int           `json:"failure_threshold"`
	SuccessThreshold int           `json:"success_threshold"`
	OpenTimeout      time.Duration `json:"open_timeout"`
	HalfOpenProbes   int           `json:"half_open_probes"`
}

// Config configures a platform client. The zero value plus an APIKey is a
// working production setup; everything else has defaults.
//
// Payload capture is controlled here rather than through process-wide
// environment state: HideInputs/HideOutputs and Anonymizer apply to every
// run and feedback payload the client sends, with the precedence rules
// documented in package redact.
type Config struct {
	// APIKey authenticates against the platform. Required.
	APIKey string `json:"-" validate:"required"`

	// Endpoint is the platform API base URL. Defaults to DefaultEndpoint.
	Endpoint string `json:"endpoint" validate:"required,http_url"`

	// Timeout bounds each HTTP request. Defaults to 30s.
	Timeout time.Duration `json:"timeout"`

	// HTTPClient overrides the default pooled client when set.
	HTTPClient *http.Client `json:"-"`

	// HideInputs drops run input payloads before transmission.
	HideInputs bool `json:"hide_inputs"`

	// HideOutputs drops run output payloads before transmission.
	HideOutputs bool `json:"hide_outputs"`

	// Anonymizer rewrites payloads before transmission. Takes precedence
	// over the hide flags; a function-level processor takes precedence
	// over both.
	Anonymizer redact.Anonymizer `json:"-"`

	// Retry is the retry policy. Zero value uses defaults.
	Retry RetryConfig `json:"retry"`

	// RateLimit is the client-side throttle. Zero value uses defaults;
	// set RequestsPerSecond negative to disable.
	RateLimit RateLimitConfig `json:"rate_limit"`

	// Breaker is the circuit breaker policy. Zero value uses defaults.
	Breaker BreakerConfig `json:"breaker"`

	// Logger receives structured client logs. Defaults to slog.Default.
	Logger *slog.Logger `json:"-"`

	// Metrics receives client metrics. Defaults to a no-op collector.
	Metrics Metrics `json:"-"`

	// UserAgent overrides the User-Agent header on platform requests.
	UserAgent string `json:"user_agent"`
}

// withDefaults returns a copy of the config with every unset field filled.
func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = "evalsmith-go/" + Version
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	if c.Retry == (RetryConfig{}) {
		def := retry.DefaultConfig()
		c.Retry = RetryConfig{
			MaxAttempts:     def.MaxAttempts,
			InitialInterval: def.InitialInterval,
			MaxInterval:     def.MaxInterval,
			Multiplier:      def.Multiplier,
			UseJitter:       def.UseJitter,
			MaxElapsedTime:  def.MaxElapsedTime,
		}
	}
	if c.RateLimit == (RateLimitConfig{}) {
		def := ratelimit.DefaultConfig()
		c.RateLimit = RateLimitConfig{
			RequestsPerSecond: def.RequestsPerSecond,
			Burst:             def.Burst,
		}
	}
	if c.Breaker == (BreakerConfig{}) {
		def := breaker.DefaultConfig()
		c.Breaker = BreakerConfig{
			FailureThreshold: def.FailureThreshold,
			SuccessThreshold: def.SuccessThreshold,
			OpenTimeout:      def.OpenTimeout,
			HalfOpenProbes:   def.HalfOpenProbes,
		}
	}
	return c
}

// DefaultConfig returns the client defaults: hosted endpoint, 30s timeout,
// and the standard retry, rate limit, and breaker policies. An APIKey must
// still be supplied before the config is usable.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

// retryConfig converts the public policy to the transport layer's.
func (c Config) retryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:     c.Retry.MaxAttempts,
		InitialInterval: c.Retry.InitialInterval,
		MaxInterval:     c.Retry.MaxInterval,
		Multiplier:      c.Retry.Multiplier,
		UseJitter:       c.Retry.UseJitter,
		MaxElapsedTime:  c.Retry.MaxElapsedTime,
	}
}

// rateLimitConfig converts the public throttle to the transport layer's.
func (c Config) rateLimitConfig() ratelimit.Config {
	return ratelimit.Config{
		RequestsPerSecond: c.RateLimit.RequestsPerSecond,
		Burst:             c.RateLimit.Burst,
	}
}

// breakerConfig converts the public breaker policy to the transport layer's.
func (c Config) breakerConfig() breaker.Config {
	return breaker.Config{
		FailureThreshold: c.Breaker.FailureThreshold,
		SuccessThreshold: c.Breaker.SuccessThreshold,
		OpenTimeout:      c.Breaker.OpenTimeout,
		HalfOpenProbes:   c.Breaker.HalfOpenProbes,
	}
}
