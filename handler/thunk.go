package handler

import (
	"context"
	"reflect"
)

// fastThunk returns a non-reflective thunk for the common callback shapes,
// or nil when fn needs reflect.Value.Call.
func fastThunk(fn any) thunk {
	switch f := fn.(type) {
	case func():
		return func(context.Context, any) error { f(); return nil }
	case func() error:
		return func(context.Context, any) error { return f() }
	case func(context.Context):
		return func(ctx context.Context, _ any) error { f(ctx); return nil }
	case func(context.Context) error:
		return func(ctx context.Context, _ any) error { return f(ctx) }
	case func(any):
		return func(_ context.Context, p any) error { f(p); return nil }
	case func(any) error:
		return func(_ context.Context, p any) error { return f(p) }
	case func(context.Context, any):
		return func(ctx context.Context, p any) error { f(ctx, p); return nil }
	case func(context.Context, any) error:
		return func(ctx context.Context, p any) error { return f(ctx, p) }
	}
	return nil
}

// reflectThunk builds the general invocation path. All shape decisions are made
// here so the returned closure only assembles arguments.
func reflectThunk(v reflect.Value, t reflect.Type, withCtx bool, kind Kind, arity int) thunk {
	in := make([]reflect.Type, t.NumIn())
	for i := range in {
		in[i] = t.In(i)
	}
	errIndex := -1
	if n := t.NumOut(); n > 0 && t.Out(n-1) == errorType {
		errIndex = n - 1
	}
	offset := 0
	if withCtx {
		offset = 1
	}

	return func(ctx context.Context, payload any) error {
		args := make([]reflect.Value, 0, len(in))
		if withCtx {
			args = append(args, reflect.ValueOf(&ctx).Elem())
		}
		switch kind {
		case KindSingle:
			args = append(args, valueOf(payload, in[offset]))
		case KindPositional:
			values := payload.(Args)
			for i := 0; i < arity; i++ {
				args = append(args, valueOf(values[i], in[offset+i]))
			}
		}
		out := v.Call(args)
		if errIndex >= 0 && !out[errIndex].IsNil() {
			return out[errIndex].Interface().(error)
		}
		return nil
	}
}

// valueOf converts a validated payload to a call argument of type t.
func valueOf(payload any, t reflect.Type) reflect.Value {
	if payload == nil {
		return reflect.Zero(t)
	}
	return reflect.ValueOf(payload)
}
