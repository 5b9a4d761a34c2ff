// Package handler compiles callbacks of arbitrary shape into uniformly callable records.
//
// A callback's parameter list is inspected exactly once, at registration. The result
// is a Record holding an invocation thunk plus the metadata needed to validate later
// payloads cheaply:
//
//	func()                       -> KindNone: payload ignored
//	func(p T) error              -> KindSingle: payload must be assignable to T
//	func(a A, b B)               -> KindPositional: payload must be handler.Args{a, b}
//
// A leading context.Context parameter is filled from the emitting context and does not
// count toward the payload shape. A trailing error result reports a handler failure;
// other results are discarded.
package handler

import (
	"context"
	"fmt"
	"reflect"
	"sync/atomic"
	"unsafe"
)

// Args is the positional-argument container for handlers taking more than one parameter.
type Args []any

// Kind is the payload shape a Record expects.
type Kind uint8

const (
	// KindNone - handler takes no payload
	KindNone Kind = iota
	// KindSingle - handler takes exactly one payload value
	KindSingle
	// KindPositional - handler takes several values packed in Args
	KindPositional
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindSingle:
		return "single"
	case KindPositional:
		return "positional"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()

	// ArgsType is the expected payload type reported by positional records.
	ArgsType = reflect.TypeFor[Args]()
)

type thunk func(ctx context.Context, payload any) error

// param is the precomputed validation rule for one payload slot
type param struct {
	typ      reflect.Type
	nullable bool
	open     bool // empty interface, accepts anything
}

func newParam(t reflect.Type) param {
	return param{
		typ:      t,
		nullable: Nullable(t),
		open:     t.Kind() == reflect.Interface && t.NumMethod() == 0,
	}
}

func (p param) check(payload any, index int) error {
	if p.open {
		return nil
	}
	if payload == nil {
		if p.nullable {
			return nil
		}
		return &TypeMismatchError{Expected: p.typ, Index: index}
	}
	if actual := reflect.TypeOf(payload); !actual.AssignableTo(p.typ) {
		return &TypeMismatchError{Expected: p.typ, Actual: actual, Index: index}
	}
	return nil
}

// Record is an immutable, compiled subscription. It is safe for concurrent use.
type Record struct {
	id       string
	owner    Owner
	identity unsafe.Pointer
	fn       any
	kind     Kind
	params   []param
	withCtx  bool
	invoke   thunk
	fired    *atomic.Bool // non-nil for one-shot records
}

// Compile inspects fn once and returns its Record.
func Compile(fn any, opts ...Option) (*Record, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: %T", ErrNotFunc, fn)
	}
	if v.IsNil() {
		return nil, ErrNilHandler
	}
	t := v.Type()
	if t.IsVariadic() {
		return nil, fmt.Errorf("%w: variadic %v", ErrUnsupportedSignature, t)
	}

	meta := Describe(fn, opts...)
	r := &Record{
		id:       meta.ID,
		owner:    meta.Owner,
		identity: meta.Identity,
		fn:       fn,
	}

	first := 0
	if t.NumIn() > 0 && t.In(0) == contextType {
		r.withCtx = true
		first = 1
	}
	for i := first; i < t.NumIn(); i++ {
		r.params = append(r.params, newParam(t.In(i)))
	}
	switch len(r.params) {
	case 0:
		r.kind = KindNone
	case 1:
		r.kind = KindSingle
	default:
		r.kind = KindPositional
	}

	r.invoke = fastThunk(fn)
	if r.invoke == nil {
		r.invoke = reflectThunk(v, t, r.withCtx, r.kind, len(r.params))
	}
	return r, nil
}

// Nullable reports whether nil is an acceptable value of t.
func Nullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice,
		reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return true
	}
	return false
}

// ID returns the subscription ID assigned at registration.
func (r *Record) ID() string { return r.id }

// Owner returns the code unit the callback is attributed to.
func (r *Record) Owner() Owner { return r.owner }

// Func returns the original callback.
func (r *Record) Func() any { return r.fn }

// Kind returns the payload shape.
func (r *Record) Kind() Kind { return r.kind }

// WantsContext reports whether the callback takes the emitting context.
func (r *Record) WantsContext() bool { return r.withCtx }

// Type returns the expected payload type: nil for KindNone, the parameter type for
// KindSingle and ArgsType for KindPositional.
func (r *Record) Type() reflect.Type {
	switch r.kind {
	case KindSingle:
		return r.params[0].typ
	case KindPositional:
		return ArgsType
	}
	return nil
}

// Params returns the positional parameter types, excluding an injected context.
func (r *Record) Params() []reflect.Type {
	out := make([]reflect.Type, len(r.params))
	for i, p := range r.params {
		out[i] = p.typ
	}
	return out
}

// Nullable reports whether a nil payload is acceptable.
func (r *Record) Nullable() bool {
	switch r.kind {
	case KindNone:
		return true
	case KindSingle:
		return r.params[0].nullable
	}
	return false
}

// Matches reports whether fn is the same callback reference this record was built from.
func (r *Record) Matches(fn any) bool {
	return fn != nil && r.identity == Identity(fn)
}

// Check validates payload against the record's shape without invoking it.
func (r *Record) Check(payload any) error {
	switch r.kind {
	case KindSingle:
		return r.params[0].check(payload, -1)
	case KindPositional:
		args, ok := payload.(Args)
		if !ok {
			return &ArityError{Expected: len(r.params), Actual: -1}
		}
		if len(args) != len(r.params) {
			return &ArityError{Expected: len(r.params), Actual: len(args)}
		}
		for i, a := range args {
			if err := r.params[i].check(a, i); err != nil {
				return err
			}
		}
	}
	return nil
}

// Call validates payload and invokes the callback. Panics are not recovered here;
// the dispatch loop owns recovery.
func (r *Record) Call(ctx context.Context, payload any) Result {
	if err := r.Check(payload); err != nil {
		if IsArityMismatch(err) {
			return Result{Outcome: SkippedArity, Err: err, Subscription: r.id}
		}
		return Result{Outcome: SkippedType, Err: err, Subscription: r.id}
	}
	if r.fired != nil && !r.fired.CompareAndSwap(false, true) {
		return Result{Outcome: Expired, Subscription: r.id}
	}
	return Classify(r.id, r.invoke(ctx, payload))
}

// Once returns a one-shot copy of r. The first accepted payload consumes it and
// done runs after the callback, even if the callback fails or panics.
func (r *Record) Once(done func()) *Record {
	c := *r
	c.fired = &atomic.Bool{}
	inner := r.invoke
	c.invoke = func(ctx context.Context, payload any) error {
		defer done()
		return inner(ctx, payload)
	}
	return &c
}
