package engine

import (
	"log/slog"

	"github.com/rbaliyan/dispatch/ratelimit"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// DefaultName is the instrumentation scope used for metrics and spans.
var DefaultName = "dispatch"

// options holds configuration for the engine (unexported)
type options struct {
	name           string
	logger         *slog.Logger
	limiter        ratelimit.Limiter
	metricsEnabled bool
	tracingEnabled bool
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

// Option configures the engine
type Option func(*options)

// WithName sets the instrumentation scope name
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets the logger used for dispatch diagnostics
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithWarnLimiter throttles warning logs. Errors are never throttled.
func WithWarnLimiter(l ratelimit.Limiter) Option {
	return func(o *options) {
		if l != nil {
			o.limiter = l
		}
	}
}

// WithMetrics enables/disables OpenTelemetry metrics
func WithMetrics(enabled bool) Option {
	return func(o *options) {
		o.metricsEnabled = enabled
	}
}

// WithTracing enables/disables an OpenTelemetry span per emission
func WithTracing(enabled bool) Option {
	return func(o *options) {
		o.tracingEnabled = enabled
	}
}

// WithMeterProvider overrides the global meter provider
func WithMeterProvider(p metric.MeterProvider) Option {
	return func(o *options) {
		if p != nil {
			o.meterProvider = p
		}
	}
}

// WithTracerProvider overrides the global tracer provider
func WithTracerProvider(p trace.TracerProvider) Option {
	return func(o *options) {
		if p != nil {
			o.tracerProvider = p
		}
	}
}

// newOptions creates options with defaults and applies provided options
func newOptions(opts ...Option) *options {
	o := &options{
		name:           DefaultName,
		limiter:        ratelimit.Unlimited{},
		metricsEnabled: true,
		tracingEnabled: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = Logger(o.name + ">engine")
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}
	return o
}

// Logger returns a logger with the given component name
func Logger(component string) *slog.Logger {
	return slog.Default().With("component", component)
}
