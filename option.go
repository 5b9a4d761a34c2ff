package dispatch

import (
	"log/slog"

	"github.com/rbaliyan/dispatch/internal/engine"
	"github.com/rbaliyan/dispatch/ratelimit"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// registryConfig registry configuration
type registryConfig struct {
	name           string
	logger         *slog.Logger
	metricsEnabled bool
	tracingEnabled bool
	warnLimit      rate.Limit
	warnBurst      int
	caseFold       bool
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

// newRegistryOptions get new registry options
func newRegistryOptions(opts ...Option) *registryConfig {
	c := &registryConfig{
		name:           engine.DefaultName,
		metricsEnabled: true,
		tracingEnabled: true,
		warnLimit:      rate.Inf,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = Logger(c.name + ">")
	}
	return c
}

// engineOptions translates the registry configuration for the dispatch engine.
// The warning limiter is always a token bucket so it can be retuned later;
// at rate.Inf it admits every warning.
func (c *registryConfig) engineOptions(limiter *ratelimit.TokenBucket) []engine.Option {
	return []engine.Option{
		engine.WithName(c.name),
		engine.WithLogger(c.logger),
		engine.WithMetrics(c.metricsEnabled),
		engine.WithTracing(c.tracingEnabled),
		engine.WithMeterProvider(c.meterProvider),
		engine.WithTracerProvider(c.tracerProvider),
		engine.WithWarnLimiter(limiter),
	}
}

// Option registry options
type Option func(*registryConfig)

// WithName set the registry name. It is the OpenTelemetry instrumentation scope
// and prefixes the logger component.
func WithName(name string) Option {
	return func(c *registryConfig) {
		if name != "" {
			c.name = name
		}
	}
}

// WithLogger set logger for dispatch diagnostics
func WithLogger(l *slog.Logger) Option {
	return func(c *registryConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics enable/disable OpenTelemetry metrics. Default is true.
func WithMetrics(v bool) Option {
	return func(c *registryConfig) {
		c.metricsEnabled = v
	}
}

// WithTracing enable/disable a span per emission. Default is true.
func WithTracing(v bool) Option {
	return func(c *registryConfig) {
		c.tracingEnabled = v
	}
}

// WithMeterProvider set the meter provider instead of the global one
func WithMeterProvider(p metric.MeterProvider) Option {
	return func(c *registryConfig) {
		c.meterProvider = p
	}
}

// WithTracerProvider set the tracer provider instead of the global one
func WithTracerProvider(p trace.TracerProvider) Option {
	return func(c *registryConfig) {
		c.tracerProvider = p
	}
}

// WithWarnLimit throttles payload mismatch warnings to limit per second with
// the given burst. By default every warning is logged. Errors and warnings about
// invalid input (empty names, nil or unsupported handlers) are never throttled.
func WithWarnLimit(limit rate.Limit, burst int) Option {
	return func(c *registryConfig) {
		c.warnLimit = limit
		c.warnBurst = burst
	}
}

// WithCaseInsensitiveNames makes dynamic event names match regardless of case
func WithCaseInsensitiveNames() Option {
	return func(c *registryConfig) {
		c.caseFold = true
	}
}

// Logger returns a logger with the given component name
func Logger(component string) *slog.Logger {
	return engine.Logger(component)
}
