// Package logtest provides a recording slog.Handler for asserting log output in tests.
package logtest

import (
	"context"
	"log/slog"
	"sync"
)

// Entry is a captured log line with its attributes flattened into a map.
type Entry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

type store struct {
	mu      sync.Mutex
	entries []Entry
}

// Recorder is a slog.Handler that keeps every record in memory.
type Recorder struct {
	store *store
	attrs []slog.Attr
}

// New creates an empty Recorder.
func New() *Recorder {
	return &Recorder{store: &store{}}
}

// Logger returns a logger writing to the recorder.
func (r *Recorder) Logger() *slog.Logger {
	return slog.New(r)
}

func (r *Recorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *Recorder) Handle(_ context.Context, rec slog.Record) error {
	e := Entry{Level: rec.Level, Message: rec.Message, Attrs: make(map[string]any)}
	for _, a := range r.attrs {
		e.Attrs[a.Key] = a.Value.Any()
	}
	rec.Attrs(func(a slog.Attr) bool {
		e.Attrs[a.Key] = a.Value.Any()
		return true
	})
	r.store.mu.Lock()
	r.store.entries = append(r.store.entries, e)
	r.store.mu.Unlock()
	return nil
}

func (r *Recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(r.attrs)+len(attrs))
	merged = append(merged, r.attrs...)
	merged = append(merged, attrs...)
	return &Recorder{store: r.store, attrs: merged}
}

func (r *Recorder) WithGroup(string) slog.Handler { return r }

// Entries returns a copy of all captured entries.
func (r *Recorder) Entries() []Entry {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]Entry, len(r.store.entries))
	copy(out, r.store.entries)
	return out
}

// Count returns the number of entries logged at level.
func (r *Recorder) Count(level slog.Level) int {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	n := 0
	for _, e := range r.store.entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// Reset discards all captured entries.
func (r *Recorder) Reset() {
	r.store.mu.Lock()
	r.store.entries = nil
	r.store.mu.Unlock()
}
