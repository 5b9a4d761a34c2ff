package handler

import (
	"errors"
	"fmt"
	"reflect"
)

// Registration and dispatch sentinel errors.
// Use errors.Is() to check for these errors as they may be wrapped with additional context.
var (
	// ErrNilHandler is returned when a nil callback is registered.
	ErrNilHandler = errors.New("handler is nil")

	// ErrNotFunc is returned when the registered callback is not a function.
	ErrNotFunc = errors.New("handler is not a function")

	// ErrUnsupportedSignature is returned for callback shapes the compiler
	// cannot adapt (variadic functions).
	ErrUnsupportedSignature = errors.New("unsupported handler signature")

	// ErrTypeMismatch indicates a payload was not assignable to the handler's parameter.
	ErrTypeMismatch = errors.New("payload type mismatch")

	// ErrArityMismatch indicates a positional payload had the wrong number of arguments.
	ErrArityMismatch = errors.New("positional argument count mismatch")
)

// TypeMismatchError describes a payload rejected by a handler.
// Actual is nil when the payload itself was nil.
type TypeMismatchError struct {
	Expected reflect.Type
	Actual   reflect.Type
	// Index is the position inside a positional payload, or -1 for single-argument handlers.
	Index int
}

func (e *TypeMismatchError) Error() string {
	actual := "nil"
	if e.Actual != nil {
		actual = e.Actual.String()
	}
	if e.Index >= 0 {
		return fmt.Sprintf("payload type mismatch at argument %d: expected %v, got %s", e.Index, e.Expected, actual)
	}
	return fmt.Sprintf("payload type mismatch: expected %v, got %s", e.Expected, actual)
}

func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// IsTypeMismatch checks if an error indicates a rejected payload type.
func IsTypeMismatch(err error) bool {
	var mismatch *TypeMismatchError
	return errors.As(err, &mismatch)
}

// ArityError describes a positional payload with the wrong length.
// Actual is -1 when the payload was not an Args container at all.
type ArityError struct {
	Expected int
	Actual   int
}

func (e *ArityError) Error() string {
	if e.Actual < 0 {
		return fmt.Sprintf("expected %d positional arguments, payload is not handler.Args", e.Expected)
	}
	return fmt.Sprintf("expected %d positional arguments, got %d", e.Expected, e.Actual)
}

func (e *ArityError) Is(target error) bool {
	return target == ErrArityMismatch
}

// IsArityMismatch checks if an error indicates a positional argument count mismatch.
func IsArityMismatch(err error) bool {
	var arity *ArityError
	return errors.As(err, &arity)
}

// PanicError wraps a value recovered from a panicking handler.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// IsPanic checks if an error was produced by a recovered handler panic.
func IsPanic(err error) bool {
	var p *PanicError
	return errors.As(err, &p)
}
