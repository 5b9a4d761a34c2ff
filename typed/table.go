// Package typed provides channel tables keyed by a closed enumeration, where every
// subscriber of a table shares one payload type known at compile time.
//
//	table := typed.New[ServerEvent, *ServerInfo]("server", eng)
//	table.Subscribe(ServerStarted, func(ctx context.Context, info *ServerInfo) error {
//	    return warmCaches(ctx, info)
//	})
//	table.Emit(ctx, ServerStarted, info)
package typed

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rbaliyan/dispatch/handler"
	"github.com/rbaliyan/dispatch/internal/engine"
)

// Handler is a strongly typed subscriber. A non-nil error is logged as a
// subscriber failure and does not affect other subscribers.
type Handler[T any] func(ctx context.Context, payload T) error

// entry is one subscription. It is never mutated after insertion.
type entry[T any] struct {
	meta  handler.Meta
	fn    Handler[T]
	fired *atomic.Bool // non-nil for one-shot entries
}

func (e *entry[T]) ID() string { return e.meta.ID }

// Table holds the subscriber lists for every key of one enumeration.
// Lists are copy-on-write: mutations replace the slice, so an emission snapshot
// is the slice read under the lock.
type Table[K comparable, T any] struct {
	name    string
	engine  *engine.Engine
	mu      sync.RWMutex
	entries map[K][]*entry[T]
}

// New creates a table. name prefixes channel names in logs, metrics and spans.
func New[K comparable, T any](name string, eng *engine.Engine) *Table[K, T] {
	if eng == nil {
		eng = engine.New()
	}
	return &Table[K, T]{
		name:    name,
		engine:  eng,
		entries: make(map[K][]*entry[T]),
	}
}

// Name returns the table name.
func (t *Table[K, T]) Name() string { return t.name }

func (t *Table[K, T]) channel(key K) string {
	return fmt.Sprintf("%s.%v", t.name, key)
}

// Subscribe registers fn for key. A nil fn is rejected with ErrNilHandler and a warning.
func (t *Table[K, T]) Subscribe(key K, fn Handler[T], opts ...handler.Option) (*handler.Subscription, error) {
	return t.add(key, fn, false, opts)
}

// SubscribeOnce registers fn for a single invocation. The subscription is removed
// after the first call completes, whether fn succeeds, fails or panics.
func (t *Table[K, T]) SubscribeOnce(key K, fn Handler[T], opts ...handler.Option) (*handler.Subscription, error) {
	return t.add(key, fn, true, opts)
}

func (t *Table[K, T]) add(key K, fn Handler[T], once bool, opts []handler.Option) (*handler.Subscription, error) {
	if fn == nil {
		t.engine.Invalid(context.Background(), "ignoring nil handler", "channel", t.channel(key))
		return nil, handler.ErrNilHandler
	}
	e := &entry[T]{meta: handler.Describe(fn, opts...), fn: fn}
	if once {
		e.fired = &atomic.Bool{}
	}

	t.mu.Lock()
	list := t.entries[key]
	next := make([]*entry[T], len(list), len(list)+1)
	copy(next, list)
	t.entries[key] = append(next, e)
	t.mu.Unlock()

	return handler.NewSubscription(e.meta.ID, t.channel(key), e.meta.Owner, func() bool {
		return t.removeWhere(key, func(x *entry[T]) bool { return x == e }, true) > 0
	}), nil
}

// Unsubscribe removes the first subscription of fn on key, compared by reference.
func (t *Table[K, T]) Unsubscribe(key K, fn Handler[T]) bool {
	if fn == nil {
		t.engine.Invalid(context.Background(), "ignoring nil handler", "channel", t.channel(key))
		return false
	}
	id := handler.Identity(fn)
	return t.removeWhere(key, func(x *entry[T]) bool { return x.meta.Identity == id }, true) > 0
}

// removeWhere drops entries of key matching pred, at most one when first is set.
// It prunes the key when its list becomes empty.
func (t *Table[K, T]) removeWhere(key K, pred func(*entry[T]) bool, first bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	list, ok := t.entries[key]
	if !ok {
		return 0
	}
	next := make([]*entry[T], 0, len(list))
	removed := 0
	for _, x := range list {
		if pred(x) && (!first || removed == 0) {
			removed++
			continue
		}
		next = append(next, x)
	}
	if removed == 0 {
		return 0
	}
	if len(next) == 0 {
		delete(t.entries, key)
	} else {
		t.entries[key] = next
	}
	return removed
}

func (t *Table[K, T]) snapshot(key K) []*entry[T] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries[key]
}

// Count returns the number of subscribers on key. Producers on hot paths can
// check it before building an expensive payload.
func (t *Table[K, T]) Count(key K) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries[key])
}

// Emit delivers payload to every subscriber of key registered at the time of the call.
func (t *Table[K, T]) Emit(ctx context.Context, key K, payload T) {
	subs := t.snapshot(key)
	if len(subs) == 0 {
		return
	}
	t.dispatch(ctx, key, subs, payload)
}

// EmitFunc is Emit with a lazily built payload: build runs only when key has subscribers.
func (t *Table[K, T]) EmitFunc(ctx context.Context, key K, build func() T) {
	subs := t.snapshot(key)
	if len(subs) == 0 || build == nil {
		return
	}
	t.dispatch(ctx, key, subs, build())
}

func (t *Table[K, T]) dispatch(ctx context.Context, key K, subs []*entry[T], payload T) {
	engine.Dispatch(ctx, t.engine, t.channel(key), subs, func(ctx context.Context, e *entry[T]) handler.Result {
		if e.fired != nil {
			if !e.fired.CompareAndSwap(false, true) {
				return handler.Result{Outcome: handler.Expired, Subscription: e.meta.ID}
			}
			defer t.removeWhere(key, func(x *entry[T]) bool { return x == e }, true)
		}
		return handler.Classify(e.meta.ID, e.fn(ctx, payload))
	})
}

// Keys returns the keys that currently have subscribers.
func (t *Table[K, T]) Keys() []K {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]K, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	return keys
}

// Clear removes every subscriber of key. Returns false if key had none.
func (t *Table[K, T]) Clear(key K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[key]; !ok {
		return false
	}
	delete(t.entries, key)
	return true
}

// ClearAll removes every subscriber of every key.
func (t *Table[K, T]) ClearAll() {
	t.mu.Lock()
	t.entries = make(map[K][]*entry[T])
	t.mu.Unlock()
}

// Statistics returns the subscriber count per key.
func (t *Table[K, T]) Statistics() map[K]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	stats := make(map[K]int, len(t.entries))
	for k, list := range t.entries {
		stats[k] = len(list)
	}
	return stats
}

// RemoveOwner removes every subscription attributed to owner and returns how many
// were removed. Keys left without subscribers are pruned.
func (t *Table[K, T]) RemoveOwner(owner handler.Owner) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for k, list := range t.entries {
		next := slices.DeleteFunc(slices.Clone(list), func(x *entry[T]) bool {
			return x.meta.Owner == owner
		})
		if len(next) == len(list) {
			continue
		}
		removed += len(list) - len(next)
		if len(next) == 0 {
			delete(t.entries, k)
		} else {
			t.entries[k] = next
		}
	}
	return removed
}
