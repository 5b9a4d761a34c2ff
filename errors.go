package dispatch

import (
	"github.com/rbaliyan/dispatch/dynamic"
	"github.com/rbaliyan/dispatch/handler"
)

// Registration sentinel errors, returned by On, Once and typed Subscribe.
// Use errors.Is() to check for these errors as they may be wrapped with additional context.
//
// Example usage:
//
//	if _, err := reg.On("door.opened", onDoor); err != nil {
//	    if errors.Is(err, dispatch.ErrUnsupportedSignature) {
//	        // variadic callbacks cannot be adapted
//	    }
//	    return err
//	}
var (
	// ErrNilHandler is returned when a nil callback is registered.
	ErrNilHandler = handler.ErrNilHandler

	// ErrNotFunc is returned when the registered callback is not a function.
	ErrNotFunc = handler.ErrNotFunc

	// ErrUnsupportedSignature is returned for variadic callbacks.
	ErrUnsupportedSignature = handler.ErrUnsupportedSignature

	// ErrEmptyName is returned when a dynamic event name is empty or whitespace.
	ErrEmptyName = dynamic.ErrEmptyName
)

// Emission diagnostics. Emit never returns these; they appear in the "error"
// attribute of the warning or error logged for a subscriber.
var (
	// ErrTypeMismatch indicates a payload was not assignable to a subscriber's parameter.
	ErrTypeMismatch = handler.ErrTypeMismatch

	// ErrArityMismatch indicates a positional payload had the wrong number of arguments.
	ErrArityMismatch = handler.ErrArityMismatch
)
