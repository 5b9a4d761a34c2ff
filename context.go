package dispatch

import (
	"context"

	"github.com/rbaliyan/dispatch/handler"
)

// ContextChannel returns the name of the channel being emitted, as seen by a
// subscriber's context. Typed channels are named "<table>.<key>", for example
// "server.tick". Returns "" outside of an emission.
func ContextChannel(ctx context.Context) string {
	return handler.ContextChannel(ctx)
}
