package dynamic

import (
	"github.com/rbaliyan/dispatch/internal/engine"
	"golang.org/x/text/cases"
)

// options holds configuration for the table (unexported)
type options struct {
	engine *engine.Engine
	fold   bool
}

// Option configures the dynamic table
type Option func(*options)

// WithEngine sets the dispatch engine shared with other tables
func WithEngine(e *engine.Engine) Option {
	return func(o *options) {
		if e != nil {
			o.engine = e
		}
	}
}

// WithCaseInsensitiveNames makes channel names match regardless of case.
// Names are folded with Unicode case folding, so "Player.Join" and "PLAYER.JOIN"
// address the same channel. Names() reports the folded form.
func WithCaseInsensitiveNames() Option {
	return func(o *options) {
		o.fold = true
	}
}

// newOptions creates options with defaults and applies provided options
func newOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.engine == nil {
		o.engine = engine.New(engine.WithLogger(engine.Logger("dispatch>dynamic")))
	}
	return o
}

// keyFunc returns the name normalization for the table.
func (o *options) keyFunc() func(string) string {
	if !o.fold {
		return func(s string) string { return s }
	}
	return func(s string) string {
		// cases.Caser is stateful and not safe for concurrent use
		return cases.Fold().String(s)
	}
}
