package typed

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rbaliyan/dispatch/handler"
	"github.com/rbaliyan/dispatch/internal/engine"
	"github.com/rbaliyan/dispatch/internal/logtest"
)

type phase uint8

const (
	phaseStart phase = iota
	phaseTick
	phaseStop
)

func (p phase) String() string {
	switch p {
	case phaseStart:
		return "start"
	case phaseTick:
		return "tick"
	case phaseStop:
		return "stop"
	}
	return "unknown"
}

func newTestTable(t *testing.T) (*Table[phase, int], *logtest.Recorder) {
	t.Helper()
	rec := logtest.New()
	eng := engine.New(engine.WithLogger(rec.Logger()), engine.WithMetrics(false), engine.WithTracing(false))
	return New[phase, int]("test", eng), rec
}

func TestSubscribeUnsubscribe(t *testing.T) {
	table, _ := newTestTable(t)

	fn := Handler[int](func(context.Context, int) error { return nil })
	if _, err := table.Subscribe(phaseStart, fn); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if got := table.Count(phaseStart); got != 1 {
		t.Errorf("expected 1 subscriber, got %d", got)
	}

	other := Handler[int](func(context.Context, int) error { return nil })
	if table.Unsubscribe(phaseStart, other) {
		t.Error("Unsubscribe removed a different callback")
	}
	if !table.Unsubscribe(phaseStart, fn) {
		t.Fatal("Unsubscribe returned false for registered callback")
	}
	if got := table.Count(phaseStart); got != 0 {
		t.Errorf("expected 0 subscribers, got %d", got)
	}
	if keys := table.Keys(); len(keys) != 0 {
		t.Errorf("expected empty key to be pruned, got %v", keys)
	}
	if table.Unsubscribe(phaseStart, fn) {
		t.Error("second Unsubscribe returned true")
	}
}

func TestUnsubscribeRemovesFirstOnly(t *testing.T) {
	table, _ := newTestTable(t)

	var calls int32
	fn := Handler[int](func(context.Context, int) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	table.Subscribe(phaseTick, fn)
	table.Subscribe(phaseTick, fn)

	if !table.Unsubscribe(phaseTick, fn) {
		t.Fatal("Unsubscribe failed")
	}
	table.Emit(context.Background(), phaseTick, 1)
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected 1 remaining invocation, got %d", got)
	}
}

func TestNilHandler(t *testing.T) {
	table, rec := newTestTable(t)

	sub, err := table.Subscribe(phaseStart, nil)
	if !errors.Is(err, handler.ErrNilHandler) {
		t.Errorf("expected ErrNilHandler, got %v", err)
	}
	if sub != nil {
		t.Error("expected nil subscription")
	}
	if _, err := table.SubscribeOnce(phaseStart, nil); !errors.Is(err, handler.ErrNilHandler) {
		t.Errorf("expected ErrNilHandler from SubscribeOnce, got %v", err)
	}
	if table.Unsubscribe(phaseStart, nil) {
		t.Error("Unsubscribe(nil) returned true")
	}
	if got := rec.Count(slog.LevelWarn); got != 3 {
		t.Errorf("expected 3 warnings, got %d", got)
	}
	if got := table.Count(phaseStart); got != 0 {
		t.Errorf("expected no subscribers, got %d", got)
	}
}

func TestEmitOrderAndIsolation(t *testing.T) {
	table, rec := newTestTable(t)

	var order []string
	table.Subscribe(phaseTick, func(_ context.Context, v int) error {
		order = append(order, "first")
		return nil
	})
	table.Subscribe(phaseTick, func(_ context.Context, v int) error {
		order = append(order, "second")
		return errors.New("broken subscriber")
	})
	table.Subscribe(phaseTick, func(_ context.Context, v int) error {
		order = append(order, "third")
		return nil
	})

	table.Emit(context.Background(), phaseTick, 42)

	if diff := cmp.Diff([]string{"first", "second", "third"}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if got := rec.Count(slog.LevelError); got != 1 {
		t.Errorf("expected 1 error, got %d", got)
	}
	if got := rec.Entries()[0].Attrs["channel"]; got != "test.tick" {
		t.Errorf("expected channel test.tick, got %v", got)
	}
}

func TestEmitRecoversPanic(t *testing.T) {
	table, rec := newTestTable(t)

	reached := false
	table.Subscribe(phaseStop, func(context.Context, int) error { panic("bad plugin") })
	table.Subscribe(phaseStop, func(context.Context, int) error { reached = true; return nil })

	table.Emit(context.Background(), phaseStop, 0)

	if !reached {
		t.Error("subscriber after panicking one was not invoked")
	}
	if got := rec.Count(slog.LevelError); got != 1 {
		t.Errorf("expected 1 error, got %d", got)
	}
}

func TestEmitNoSubscribers(t *testing.T) {
	table, rec := newTestTable(t)

	table.Emit(context.Background(), phaseStart, 1)

	built := false
	table.EmitFunc(context.Background(), phaseStart, func() int {
		built = true
		return 1
	})
	if built {
		t.Error("EmitFunc built payload without subscribers")
	}
	if n := len(rec.Entries()); n != 0 {
		t.Errorf("expected no log output, got %d", n)
	}
}

func TestEmitFunc(t *testing.T) {
	table, _ := newTestTable(t)

	var got int
	table.Subscribe(phaseTick, func(_ context.Context, v int) error { got = v; return nil })
	table.EmitFunc(context.Background(), phaseTick, func() int { return 7 })

	if got != 7 {
		t.Errorf("expected payload 7, got %d", got)
	}
}

func TestSubscribeOnce(t *testing.T) {
	t.Run("fires once", func(t *testing.T) {
		table, _ := newTestTable(t)
		calls := 0
		table.SubscribeOnce(phaseStart, func(context.Context, int) error { calls++; return nil })

		table.Emit(context.Background(), phaseStart, 1)
		table.Emit(context.Background(), phaseStart, 2)

		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
		if got := table.Count(phaseStart); got != 0 {
			t.Errorf("expected subscriber removed, got %d", got)
		}
	})

	t.Run("removed after error", func(t *testing.T) {
		table, _ := newTestTable(t)
		table.SubscribeOnce(phaseStart, func(context.Context, int) error { return errors.New("fail") })

		table.Emit(context.Background(), phaseStart, 1)

		if got := table.Count(phaseStart); got != 0 {
			t.Errorf("expected subscriber removed after error, got %d", got)
		}
	})

	t.Run("removed after panic", func(t *testing.T) {
		table, _ := newTestTable(t)
		table.SubscribeOnce(phaseStart, func(context.Context, int) error { panic("fail") })

		table.Emit(context.Background(), phaseStart, 1)

		if got := table.Count(phaseStart); got != 0 {
			t.Errorf("expected subscriber removed after panic, got %d", got)
		}
	})

	t.Run("concurrent emissions fire once", func(t *testing.T) {
		table, _ := newTestTable(t)
		var calls int32
		table.SubscribeOnce(phaseTick, func(context.Context, int) error {
			atomic.AddInt32(&calls, 1)
			return nil
		})

		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				table.Emit(context.Background(), phaseTick, 1)
			}()
		}
		wg.Wait()

		if got := atomic.LoadInt32(&calls); got != 1 {
			t.Errorf("expected exactly 1 call, got %d", got)
		}
	})
}

func TestSubscriptionHandle(t *testing.T) {
	table, _ := newTestTable(t)

	sub, err := table.Subscribe(phaseTick, func(context.Context, int) error { return nil })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if sub.ID() == "" {
		t.Error("expected subscription ID")
	}
	if sub.Channel() != "test.tick" {
		t.Errorf("expected channel test.tick, got %q", sub.Channel())
	}
	if !sub.Unsubscribe() {
		t.Error("Unsubscribe returned false")
	}
	if sub.Unsubscribe() {
		t.Error("second Unsubscribe returned true")
	}
	if got := table.Count(phaseTick); got != 0 {
		t.Errorf("expected 0 subscribers, got %d", got)
	}
}

func TestClearAndStatistics(t *testing.T) {
	table, _ := newTestTable(t)
	noop := func(context.Context, int) error { return nil }

	table.Subscribe(phaseStart, noop)
	table.Subscribe(phaseTick, noop)
	table.Subscribe(phaseTick, noop)

	want := map[phase]int{phaseStart: 1, phaseTick: 2}
	if diff := cmp.Diff(want, table.Statistics()); diff != "" {
		t.Errorf("statistics mismatch (-want +got):\n%s", diff)
	}

	keys := table.Keys()
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	if diff := cmp.Diff([]phase{phaseStart, phaseTick}, keys); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}

	if !table.Clear(phaseTick) {
		t.Error("Clear returned false for populated key")
	}
	if table.Clear(phaseStop) {
		t.Error("Clear returned true for empty key")
	}
	table.ClearAll()
	if stats := table.Statistics(); len(stats) != 0 {
		t.Errorf("expected empty statistics, got %v", stats)
	}
}

func TestRemoveOwner(t *testing.T) {
	table, _ := newTestTable(t)

	var got []string
	record := func(name string) Handler[int] {
		return func(context.Context, int) error { got = append(got, name); return nil }
	}
	table.Subscribe(phaseStart, record("x1"), handler.WithOwner("plugin-x"))
	table.Subscribe(phaseStart, record("y1"), handler.WithOwner("plugin-y"))
	table.Subscribe(phaseTick, record("x2"), handler.WithOwner("plugin-x"))
	table.SubscribeOnce(phaseStop, record("x3"), handler.WithOwner("plugin-x"))

	if n := table.RemoveOwner("plugin-x"); n != 3 {
		t.Errorf("expected 3 removed, got %d", n)
	}

	for _, p := range []phase{phaseStart, phaseTick, phaseStop} {
		table.Emit(context.Background(), p, 0)
	}
	if diff := cmp.Diff([]string{"y1"}, got); diff != "" {
		t.Errorf("invocations mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[phase]int{phaseStart: 1}, table.Statistics()); diff != "" {
		t.Errorf("statistics mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultOwnerIsDeclaringPackage(t *testing.T) {
	table, _ := newTestTable(t)

	sub, _ := table.Subscribe(phaseStart, func(context.Context, int) error { return nil })
	want := handler.OwnerOf(TestDefaultOwnerIsDeclaringPackage)
	if sub.Owner() != want {
		t.Errorf("expected owner %q, got %q", want, sub.Owner())
	}
	if n := table.RemoveOwner(want); n != 1 {
		t.Errorf("expected 1 removed, got %d", n)
	}
}

func TestConcurrentSubscribeEmit(t *testing.T) {
	table, _ := newTestTable(t)

	const workers = 16
	const perWorker = 50
	var wg sync.WaitGroup
	stop := make(chan struct{})

	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				table.Emit(context.Background(), phaseTick, 1)
			}
		}
	}()

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				fn := Handler[int](func(context.Context, int) error { return nil })
				table.Subscribe(phaseTick, fn)
				if i%2 == 0 {
					table.Unsubscribe(phaseTick, fn)
				}
			}
		}()
	}
	wg.Wait()
	close(stop)

	if got, want := table.Count(phaseTick), workers*perWorker/2; got != want {
		t.Errorf("expected %d subscribers, got %d", want, got)
	}
}
