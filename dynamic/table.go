// Package dynamic provides channels addressed by arbitrary runtime names, where each
// subscriber decides its own payload shape at registration.
//
// Subscribers may take no payload, a single value of any type, or several positional
// values delivered as handler.Args:
//
//	table.On("door.opened", func() { ... })
//	table.On("door.opened", func(d *Door) { ... })
//	table.On("door.moved", func(ctx context.Context, d *Door, from, to Vec) error { ... })
//
//	table.Emit(ctx, "door.opened", door)
//	table.EmitArgs(ctx, "door.moved", door, from, to)
//
// There is no compile-time contract between producers and subscribers, so every
// payload is checked against each subscriber's compiled shape. A subscriber that
// cannot accept the payload is skipped with a warning and the rest still run.
package dynamic

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/rbaliyan/dispatch/handler"
	"github.com/rbaliyan/dispatch/internal/engine"
)

// ErrEmptyName is returned when a channel name is empty or whitespace.
var ErrEmptyName = errors.New("channel name is empty")

// Table is a registry of named channels. Subscriber lists are copy-on-write:
// mutations replace the slice under the lock, and emissions dispatch the slice
// they read, so handlers never run under the lock.
type Table struct {
	engine   *engine.Engine
	key      func(string) string
	mu       sync.RWMutex
	channels map[string][]*handler.Record
}

// New creates an empty table.
func New(opts ...Option) *Table {
	o := newOptions(opts...)
	return &Table{
		engine:   o.engine,
		key:      o.keyFunc(),
		channels: make(map[string][]*handler.Record),
	}
}

// validName checks name and logs a warning when it is unusable.
func (t *Table) validName(ctx context.Context, op, name string) bool {
	if strings.TrimSpace(name) == "" {
		t.engine.Invalid(ctx, "ignoring empty channel name", "op", op)
		return false
	}
	return true
}

// On subscribes fn to name. fn may be any non-variadic function; see package handler
// for the accepted shapes. Invalid input is logged and returned as an error, never panics.
func (t *Table) On(name string, fn any, opts ...handler.Option) (*handler.Subscription, error) {
	return t.add("on", name, fn, false, opts)
}

// Once subscribes fn to name for a single invocation. It is removed after the first
// accepted payload, whether fn succeeds, fails or panics.
func (t *Table) Once(name string, fn any, opts ...handler.Option) (*handler.Subscription, error) {
	return t.add("once", name, fn, true, opts)
}

func (t *Table) add(op, name string, fn any, once bool, opts []handler.Option) (*handler.Subscription, error) {
	ctx := context.Background()
	if !t.validName(ctx, op, name) {
		return nil, ErrEmptyName
	}
	rec, err := handler.Compile(fn, opts...)
	if err != nil {
		t.engine.Invalid(ctx, "rejecting handler", "op", op, "channel", name, "error", err)
		return nil, err
	}
	key := t.key(name)
	if once {
		var self *handler.Record
		self = rec.Once(func() { t.remove(key, self) })
		rec = self
	}

	t.mu.Lock()
	list := t.channels[key]
	next := make([]*handler.Record, len(list), len(list)+1)
	copy(next, list)
	t.channels[key] = append(next, rec)
	t.mu.Unlock()

	return handler.NewSubscription(rec.ID(), key, rec.Owner(), func() bool {
		return t.remove(key, rec)
	}), nil
}

// Off removes the first subscription on name whose callback is the same reference
// as fn. Returns whether a subscription was removed.
func (t *Table) Off(name string, fn any) bool {
	if !t.validName(context.Background(), "off", name) {
		return false
	}
	if fn == nil {
		t.engine.Invalid(context.Background(), "ignoring nil handler", "op", "off", "channel", name)
		return false
	}
	return t.removeFirst(t.key(name), func(r *handler.Record) bool { return r.Matches(fn) })
}

func (t *Table) remove(key string, rec *handler.Record) bool {
	return t.removeFirst(key, func(r *handler.Record) bool { return r == rec })
}

func (t *Table) removeFirst(key string, pred func(*handler.Record) bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	list, ok := t.channels[key]
	if !ok {
		return false
	}
	i := slices.IndexFunc(list, pred)
	if i < 0 {
		return false
	}
	if len(list) == 1 {
		delete(t.channels, key)
		return true
	}
	t.channels[key] = slices.Delete(slices.Clone(list), i, i+1)
	return true
}

// Emit delivers payload to the subscribers of name registered at the time of the
// call. A nil payload is delivered only to subscribers that accept nil.
func (t *Table) Emit(ctx context.Context, name string, payload any) {
	if !t.validName(ctx, "emit", name) {
		return
	}
	key := t.key(name)
	t.mu.RLock()
	subs := t.channels[key]
	t.mu.RUnlock()
	if len(subs) == 0 {
		return
	}
	engine.Dispatch(ctx, t.engine, key, subs, func(ctx context.Context, r *handler.Record) handler.Result {
		return r.Call(ctx, payload)
	})
}

// EmitArgs emits args as a positional payload for multi-parameter subscribers.
func (t *Table) EmitArgs(ctx context.Context, name string, args ...any) {
	t.Emit(ctx, name, handler.Args(args))
}

// SubscriberCount returns the number of subscribers on name.
func (t *Table) SubscriberCount(name string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.channels[t.key(name)])
}

// Names returns the sorted names of channels that have subscribers.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Sorted(maps.Keys(t.channels))
}

// Clear removes every subscriber of name. Returns false if it had none.
func (t *Table) Clear(name string) bool {
	if !t.validName(context.Background(), "clear", name) {
		return false
	}
	key := t.key(name)
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.channels[key]; !ok {
		return false
	}
	delete(t.channels, key)
	return true
}

// ClearAll removes every channel.
func (t *Table) ClearAll() {
	t.mu.Lock()
	t.channels = make(map[string][]*handler.Record)
	t.mu.Unlock()
}

// Statistics returns the subscriber count per channel name.
func (t *Table) Statistics() map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	stats := make(map[string]int, len(t.channels))
	for name, list := range t.channels {
		stats[name] = len(list)
	}
	return stats
}

// RemoveOwner removes every subscription attributed to owner across all channels and
// returns how many were removed. Channels left empty are deleted.
func (t *Table) RemoveOwner(owner handler.Owner) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for name, list := range t.channels {
		next := slices.DeleteFunc(slices.Clone(list), func(r *handler.Record) bool {
			return r.Owner() == owner
		})
		if len(next) == len(list) {
			continue
		}
		removed += len(list) - len(next)
		if len(next) == 0 {
			delete(t.channels, name)
		} else {
			t.channels[name] = next
		}
	}
	return removed
}
