package dispatch

import (
	"context"

	"github.com/rbaliyan/dispatch/dynamic"
	"github.com/rbaliyan/dispatch/handler"
	"github.com/rbaliyan/dispatch/internal/engine"
	"github.com/rbaliyan/dispatch/ratelimit"
	"github.com/rbaliyan/dispatch/typed"
	"golang.org/x/time/rate"
)

// Registry holds every channel table of a process. Construct one at startup and
// pass it to the modules that publish or subscribe. It is safe for concurrent use.
type Registry struct {
	name    string
	engine  *engine.Engine
	warns   *ratelimit.TokenBucket
	pre     *typed.Table[PreAction, *ActionEvent]
	post    *typed.Table[PostAction, *ActionEvent]
	players *typed.Table[PlayerEvent, *PlayerInfo]
	servers *typed.Table[ServerEvent, *ServerInfo]
	events  *dynamic.Table
}

// New creates an empty registry
func New(opts ...Option) *Registry {
	c := newRegistryOptions(opts...)
	warns := ratelimit.NewTokenBucket(float64(c.warnLimit), c.warnBurst)
	eng := engine.New(c.engineOptions(warns)...)

	dynOpts := []dynamic.Option{dynamic.WithEngine(eng)}
	if c.caseFold {
		dynOpts = append(dynOpts, dynamic.WithCaseInsensitiveNames())
	}
	return &Registry{
		name:    c.name,
		engine:  eng,
		warns:   warns,
		pre:     typed.New[PreAction, *ActionEvent]("pre_action", eng),
		post:    typed.New[PostAction, *ActionEvent]("post_action", eng),
		players: typed.New[PlayerEvent, *PlayerInfo]("player", eng),
		servers: typed.New[ServerEvent, *ServerInfo]("server", eng),
		events:  dynamic.New(dynOpts...),
	}
}

// Name registry name
func (r *Registry) Name() string {
	return r.name
}

// SetWarnLimit retunes the payload mismatch warning throttle at runtime.
// Use rate.Inf to log every warning again.
func (r *Registry) SetWarnLimit(limit rate.Limit, burst int) {
	r.warns.Reconfigure(float64(limit), burst)
}

// WarnLimit returns the current warning rate and burst.
func (r *Registry) WarnLimit() (rate.Limit, int) {
	return rate.Limit(r.warns.Limit()), r.warns.Burst()
}

// PreActions returns the table of channels raised before player actions
func (r *Registry) PreActions() *typed.Table[PreAction, *ActionEvent] {
	return r.pre
}

// PostActions returns the table of channels raised after player actions
func (r *Registry) PostActions() *typed.Table[PostAction, *ActionEvent] {
	return r.post
}

// Players returns the table of player lifecycle channels
func (r *Registry) Players() *typed.Table[PlayerEvent, *PlayerInfo] {
	return r.players
}

// Servers returns the table of server lifecycle channels
func (r *Registry) Servers() *typed.Table[ServerEvent, *ServerInfo] {
	return r.servers
}

// Events returns the table of dynamic channels
func (r *Registry) Events() *dynamic.Table {
	return r.events
}

// On subscribes fn to the dynamic event name. See dynamic.Table.On.
func (r *Registry) On(name string, fn any, opts ...handler.Option) (*handler.Subscription, error) {
	return r.events.On(name, fn, opts...)
}

// Once subscribes fn to the dynamic event name for a single invocation
func (r *Registry) Once(name string, fn any, opts ...handler.Option) (*handler.Subscription, error) {
	return r.events.Once(name, fn, opts...)
}

// Off removes the first subscription of fn on name, compared by reference
func (r *Registry) Off(name string, fn any) bool {
	return r.events.Off(name, fn)
}

// Emit delivers payload to the subscribers of the dynamic event name
func (r *Registry) Emit(ctx context.Context, name string, payload any) {
	r.events.Emit(ctx, name, payload)
}

// EmitArgs delivers args to multi-parameter subscribers of name
func (r *Registry) EmitArgs(ctx context.Context, name string, args ...any) {
	r.events.EmitArgs(ctx, name, args...)
}

// SubscriberCount returns the number of subscribers of the dynamic event name
func (r *Registry) SubscriberCount(name string) int {
	return r.events.SubscriberCount(name)
}

// EventNames returns the sorted names of dynamic events that have subscribers
func (r *Registry) EventNames() []string {
	return r.events.Names()
}

// ClearEvent removes every subscriber of the dynamic event name
func (r *Registry) ClearEvent(name string) bool {
	return r.events.Clear(name)
}

// ClearAllEvents removes every dynamic event. Typed tables are not affected.
func (r *Registry) ClearAllEvents() {
	r.events.ClearAll()
}

// EventStatistics returns the subscriber count per dynamic event name
func (r *Registry) EventStatistics() map[string]int {
	return r.events.Statistics()
}

// UnregisterOwner removes every subscription attributed to owner from all typed
// and dynamic tables and returns the number removed. Emissions already in progress
// finish with the subscribers they started with.
func (r *Registry) UnregisterOwner(owner handler.Owner) int {
	removed := r.pre.RemoveOwner(owner) +
		r.post.RemoveOwner(owner) +
		r.players.RemoveOwner(owner) +
		r.servers.RemoveOwner(owner) +
		r.events.RemoveOwner(owner)
	if removed > 0 {
		r.engine.Logger().Debug("unregistered owner", "owner", owner, "removed", removed)
	}
	return removed
}

// Reset removes every subscriber from every table
func (r *Registry) Reset() {
	r.pre.ClearAll()
	r.post.ClearAll()
	r.players.ClearAll()
	r.servers.ClearAll()
	r.events.ClearAll()
}
