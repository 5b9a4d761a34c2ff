package handler

import (
	"strconv"
	"sync/atomic"
	"unsafe"

	"github.com/google/uuid"
)

var counter uint64

// NewID generates a new unique subscription ID
func NewID() string {
	u, err := uuid.NewRandom()
	if err == nil {
		return u.String()
	}
	return strconv.FormatUint(atomic.AddUint64(&counter, 1), 10)
}

// options holds per-registration configuration (unexported)
type options struct {
	owner    Owner
	ownerSet bool
}

// Option configures a single registration
type Option func(*options)

// WithOwner attributes the subscription to owner instead of the package that
// declares the callback. Use it when a plugin registers through helpers that
// live in another package.
func WithOwner(owner Owner) Option {
	return func(o *options) {
		o.owner = owner
		o.ownerSet = true
	}
}

// Meta is the identity information captured once per registration.
type Meta struct {
	ID       string
	Owner    Owner
	Identity unsafe.Pointer
}

// Describe resolves the registration metadata for fn.
func Describe(fn any, opts ...Option) Meta {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	owner := o.owner
	if !o.ownerSet {
		owner = OwnerOf(fn)
	}
	return Meta{
		ID:       NewID(),
		Owner:    owner,
		Identity: Identity(fn),
	}
}
