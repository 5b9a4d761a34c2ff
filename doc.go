// Package dispatch is an in-process publish/subscribe registry for server lifecycle
// hooks and plugin events.
//
// A Registry holds two kinds of channels:
//   - Typed channels: keyed by a closed enumeration (PreAction, PostAction,
//     PlayerEvent, ServerEvent) with one payload type per table, checked at compile time.
//   - Dynamic channels: keyed by arbitrary strings. Each subscriber chooses its own
//     payload shape and every payload is validated against it at emission.
//
// Basic example:
//
//	reg := dispatch.New()
//
//	// Typed subscription
//	reg.Servers().Subscribe(dispatch.ServerStarted, func(ctx context.Context, info *dispatch.ServerInfo) error {
//	    log.Printf("%s is up", info.Name)
//	    return nil
//	})
//	reg.Servers().Emit(ctx, dispatch.ServerStarted, &dispatch.ServerInfo{Name: "lobby"})
//
//	// Dynamic subscription with a positional payload
//	reg.On("door.moved", func(d *Door, from, to Vec) { ... })
//	reg.EmitArgs(ctx, "door.moved", door, from, to)
//
// Emission is synchronous and never fails from the caller's point of view. Each
// subscriber runs in insertion order against a snapshot taken when Emit was called.
// A subscriber that returns an error or panics is logged at Error level; one whose
// parameter does not accept the payload is skipped and logged at Warn level. Neither
// stops the remaining subscribers.
//
// Registry Options:
//   - WithLogger: set the slog logger. Default is slog.Default() with a component attribute.
//   - WithMetrics: enable/disable OpenTelemetry metrics. Default is true.
//   - WithTracing: enable/disable an OpenTelemetry span per emission. Default is true.
//   - WithWarnLimit: throttle mismatch warnings. Default is unlimited; retune at runtime
//     with Registry.SetWarnLimit. Invalid input warnings are never throttled.
//   - WithCaseInsensitiveNames: fold dynamic event names.
//
// Ownership:
// Every subscription records the Go package that declares its callback. When a
// plugin is unloaded, UnregisterOwner removes all of its subscriptions at once:
//
//	removed := reg.UnregisterOwner("github.com/acme/portals")
//
// A non-zero teardown is also logged at Debug level.
//
// Use handler.WithOwner at registration when callbacks are declared in a shared
// helper package rather than in the plugin itself.
package dispatch
