package engine

import (
	"context"

	"github.com/rbaliyan/dispatch/handler"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// metrics holds the dispatch counters. A nil *metrics records nothing.
type metrics struct {
	emitted    metric.Int64Counter
	delivered  metric.Int64Counter
	skipped    metric.Int64Counter
	failed     metric.Int64Counter
	suppressed metric.Int64Counter
}

func newMetrics(meter metric.Meter) *metrics {
	return &metrics{
		emitted: counter(meter, "dispatch.emitted",
			"Number of emissions that reached at least one subscriber", "{emission}"),
		delivered: counter(meter, "dispatch.delivered",
			"Number of subscriber invocations that completed", "{call}"),
		skipped: counter(meter, "dispatch.skipped",
			"Number of subscribers skipped because of a payload mismatch", "{call}"),
		failed: counter(meter, "dispatch.failed",
			"Number of subscriber invocations that returned an error or panicked", "{call}"),
		suppressed: counter(meter, "dispatch.warnings.suppressed",
			"Number of warning logs dropped by the warning limiter", "{line}"),
	}
}

func counter(meter metric.Meter, name, desc, unit string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil || c == nil {
		return noop.Int64Counter{}
	}
	return c
}

// tally accumulates outcomes for one emission so counters are updated once.
type tally struct {
	delivered int64
	arity     int64
	typ       int64
	failed    int64
}

func (t *tally) add(o handler.Outcome) {
	switch o {
	case handler.Delivered:
		t.delivered++
	case handler.SkippedType:
		t.typ++
	case handler.SkippedArity:
		t.arity++
	case handler.Failed:
		t.failed++
	}
}

func (m *metrics) record(ctx context.Context, channel string, t *tally) {
	if m == nil {
		return
	}
	attrs := attribute.NewSet(attribute.String("channel", channel))
	opt := metric.WithAttributeSet(attrs)
	m.emitted.Add(ctx, 1, opt)
	if t.delivered > 0 {
		m.delivered.Add(ctx, t.delivered, opt)
	}
	if t.typ > 0 {
		m.skipped.Add(ctx, t.typ, metric.WithAttributes(
			attribute.String("channel", channel), attribute.String("reason", "type")))
	}
	if t.arity > 0 {
		m.skipped.Add(ctx, t.arity, metric.WithAttributes(
			attribute.String("channel", channel), attribute.String("reason", "arity")))
	}
	if t.failed > 0 {
		m.failed.Add(ctx, t.failed, opt)
	}
}

func (m *metrics) suppress(ctx context.Context) {
	if m == nil {
		return
	}
	m.suppressed.Add(ctx, 1)
}
