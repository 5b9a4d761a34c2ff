package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/rbaliyan/dispatch/typed"
	"golang.org/x/time/rate"
)

// TestRegistry creates a new registry configured for testing.
// Metrics and tracing are disabled and warnings are never throttled,
// so tests can assert on every log line. opts are applied last.
//
// Example:
//
//	reg := dispatch.TestRegistry(dispatch.WithLogger(logger))
func TestRegistry(opts ...Option) *Registry {
	base := []Option{
		WithName("test-registry"),
		WithMetrics(false),
		WithTracing(false),
		WithWarnLimit(rate.Inf, 0),
	}
	return New(append(base, opts...)...)
}

// TestHandler is a helper for testing subscribers.
// It collects every payload it receives for later assertions and can be told
// to fail, for exercising failure isolation.
type TestHandler[T any] struct {
	mu       sync.Mutex
	received []TestHandlerCall[T]
	handler  typed.Handler[T]
	fn       typed.Handler[T]
	err      error
	failAll  bool
	failNext int
}

// TestHandlerCall represents a single call to the test handler
type TestHandlerCall[T any] struct {
	Context context.Context
	Channel string
	Data    T
	Time    time.Time
}

// NewTestHandler creates a new test handler.
// If handler is nil, every call succeeds.
func NewTestHandler[T any](handler typed.Handler[T]) *TestHandler[T] {
	h := &TestHandler[T]{
		received: make([]TestHandlerCall[T], 0),
		handler:  handler,
	}
	h.fn = h.handle
	return h
}

// Handler returns the typed handler for use with typed.Table.Subscribe.
// The returned func is created once, so it can also be passed to Unsubscribe.
func (h *TestHandler[T]) Handler() typed.Handler[T] {
	return h.fn
}

// Func returns the handler for use with Registry.On and Registry.Off.
// Its payload parameter is T.
func (h *TestHandler[T]) Func() func(context.Context, T) error {
	return h.fn
}

func (h *TestHandler[T]) handle(ctx context.Context, data T) error {
	h.mu.Lock()
	h.received = append(h.received, TestHandlerCall[T]{
		Context: ctx,
		Channel: ContextChannel(ctx),
		Data:    data,
		Time:    time.Now(),
	})
	fail := h.failAll || h.failNext > 0
	if h.failNext > 0 {
		h.failNext--
	}
	err := h.err
	h.mu.Unlock()

	if fail {
		return err
	}
	if h.handler != nil {
		return h.handler(ctx, data)
	}
	return nil
}

// FailAll makes every call return err
func (h *TestHandler[T]) FailAll(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failAll = true
	h.err = err
}

// FailNext makes the next n calls return err
func (h *TestHandler[T]) FailNext(n int, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failNext = n
	h.err = err
}

// Received returns a copy of all received calls
func (h *TestHandler[T]) Received() []TestHandlerCall[T] {
	h.mu.Lock()
	defer h.mu.Unlock()

	result := make([]TestHandlerCall[T], len(h.received))
	copy(result, h.received)
	return result
}

// Count returns the number of calls received
func (h *TestHandler[T]) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.received)
}

// Last returns the last received call, or nil if none
func (h *TestHandler[T]) Last() *TestHandlerCall[T] {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.received) == 0 {
		return nil
	}
	call := h.received[len(h.received)-1]
	return &call
}

// Reset clears all received calls and failure configuration
func (h *TestHandler[T]) Reset() {
	h.mu.Lock()
	h.received = make([]TestHandlerCall[T], 0)
	h.failAll = false
	h.failNext = 0
	h.err = nil
	h.mu.Unlock()
}
