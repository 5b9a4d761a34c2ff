// Package engine implements the shared dispatch loop used by typed and dynamic channels.
//
// Dispatch is synchronous and fire-and-forget: every subscriber in the caller's
// snapshot is invoked in order, each one isolated from the others. Handler errors
// and panics are logged at Error level, payload mismatches at Warn level, and the
// caller never observes either.
package engine

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/rbaliyan/dispatch/handler"
	"github.com/rbaliyan/dispatch/ratelimit"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	spanKeyChannel     = "dispatch.channel"
	spanKeySubscribers = "dispatch.subscribers"
)

// Subscriber is anything the engine can attribute a result to.
type Subscriber interface {
	ID() string
}

// Engine reports per-subscriber results through logging, metrics and tracing.
// It holds no subscriber state and is safe for concurrent use.
type Engine struct {
	logger  *slog.Logger
	limiter ratelimit.Limiter
	metrics *metrics
	tracer  trace.Tracer
}

// New creates an engine.
func New(opts ...Option) *Engine {
	o := newOptions(opts...)
	e := &Engine{
		logger:  o.logger,
		limiter: o.limiter,
	}
	if o.metricsEnabled {
		e.metrics = newMetrics(o.meterProvider.Meter(o.name))
	}
	if o.tracingEnabled {
		e.tracer = o.tracerProvider.Tracer(o.name)
	}
	return e
}

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// Warn logs a warning unless the warning limiter rejects it. The first warning
// after a suppressed run carries the number of lines dropped.
func (e *Engine) Warn(ctx context.Context, msg string, args ...any) {
	if !e.limiter.Allow() {
		e.metrics.suppress(ctx)
		return
	}
	if n := e.limiter.TakeDropped(); n > 0 {
		args = append(args, "suppressed", n)
	}
	e.logger.WarnContext(ctx, msg, args...)
}

// Invalid logs rejected caller input such as an empty channel name or a nil
// handler. It bypasses the warning limiter so misuse is always reported.
func (e *Engine) Invalid(ctx context.Context, msg string, args ...any) {
	e.logger.WarnContext(ctx, msg, args...)
}

// Dispatch invokes call for every subscriber in subs, in order. subs must be a
// snapshot the caller will not mutate. Dispatch never panics.
func Dispatch[S Subscriber](ctx context.Context, e *Engine, channel string, subs []S, call func(context.Context, S) handler.Result) {
	if len(subs) == 0 {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = handler.ContextWithChannel(ctx, channel)
	if e.tracer != nil {
		var span trace.Span
		ctx, span = e.tracer.Start(ctx, channel+".emit",
			trace.WithAttributes(
				attribute.String(spanKeyChannel, channel),
				attribute.Int(spanKeySubscribers, len(subs))),
			trace.WithSpanKind(trace.SpanKindInternal))
		defer span.End()
	}

	var t tally
	for _, s := range subs {
		res := invoke(ctx, s, call)
		t.add(res.Outcome)
		e.report(ctx, channel, res)
	}
	e.metrics.record(ctx, channel, &t)
}

// invoke runs one subscriber, converting a panic into a Failed result.
func invoke[S Subscriber](ctx context.Context, s S, call func(context.Context, S) handler.Result) (res handler.Result) {
	defer func() {
		if v := recover(); v != nil {
			res = handler.Result{
				Outcome:      handler.Failed,
				Err:          &handler.PanicError{Value: v, Stack: debug.Stack()},
				Subscription: s.ID(),
			}
		}
	}()
	res = call(ctx, s)
	if res.Subscription == "" {
		res.Subscription = s.ID()
	}
	return res
}

func (e *Engine) report(ctx context.Context, channel string, res handler.Result) {
	switch res.Outcome {
	case handler.SkippedType:
		e.Warn(ctx, "subscriber skipped, payload type mismatch",
			"channel", channel, "subscription", res.Subscription, "error", res.Err)
	case handler.SkippedArity:
		e.Warn(ctx, "subscriber skipped, positional argument mismatch",
			"channel", channel, "subscription", res.Subscription, "error", res.Err)
	case handler.Failed:
		args := []any{"channel", channel, "subscription", res.Subscription, "error", res.Err}
		if p, ok := res.Err.(*handler.PanicError); ok {
			args = append(args, "stack", string(p.Stack))
		}
		e.logger.ErrorContext(ctx, "subscriber failed", args...)
	}
}
