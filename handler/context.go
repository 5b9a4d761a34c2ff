package handler

import "context"

type contextKey int

const channelContextKey contextKey = iota

// ContextWithChannel returns a context carrying the name of the channel being emitted.
func ContextWithChannel(ctx context.Context, channel string) context.Context {
	return context.WithValue(ctx, channelContextKey, channel)
}

// ContextChannel returns the channel name stored in ctx by the dispatcher,
// or "" outside of an emission.
func ContextChannel(ctx context.Context) string {
	if s, ok := ctx.Value(channelContextKey).(string); ok {
		return s
	}
	return ""
}
