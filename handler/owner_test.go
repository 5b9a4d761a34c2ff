package handler

import (
	"context"
	"strings"
	"testing"
)

func TestOwnerFromSymbol(t *testing.T) {
	tests := []struct {
		symbol string
		want   Owner
	}{
		{"main.main", "main"},
		{"main.init.func1", "main"},
		{"github.com/acme/plugin.Init", "github.com/acme/plugin"},
		{"github.com/acme/plugin.(*Mod).Init.func1", "github.com/acme/plugin"},
		{"github.com/acme/plugin.Mod.Handle-fm", "github.com/acme/plugin"},
		{"gopkg.in/yaml%2ev3.Unmarshal", "gopkg.in/yaml.v3"},
		{"github.com/acme/plugin.Handle[...]", "github.com/acme/plugin"},
		{"github.com/acme/plugin.Map[go.shape.int].func2", "github.com/acme/plugin"},
		{"runtime", "runtime"},
	}
	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			if got := ownerFromSymbol(tt.symbol); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

type module struct{ name string }

func (m *module) handle(int) {}

func TestOwnerOf(t *testing.T) {
	const pkg Owner = "github.com/rbaliyan/dispatch/handler"
	m := &module{}

	tests := []struct {
		name string
		fn   any
		want Owner
	}{
		{"package func", TestOwnerOf, pkg},
		{"closure", func() {}, pkg},
		{"method value", m.handle, pkg},
		{"foreign func", strings.ToUpper, "strings"},
		{"nil", nil, NoOwner},
		{"not func", 3, NoOwner},
		{"typed nil", (func())(nil), NoOwner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OwnerOf(tt.fn); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	fn := func() {}

	meta := Describe(fn)
	if meta.Owner != OwnerOf(fn) {
		t.Errorf("expected declared owner, got %q", meta.Owner)
	}
	if meta.ID == "" || meta.Identity == nil {
		t.Error("expected ID and identity")
	}
	if again := Describe(fn); again.ID == meta.ID {
		t.Error("expected unique IDs per registration")
	}

	meta = Describe(fn, WithOwner("plugin-a"))
	if meta.Owner != "plugin-a" {
		t.Errorf("expected owner override, got %q", meta.Owner)
	}
	meta = Describe(fn, WithOwner(NoOwner))
	if meta.Owner != NoOwner {
		t.Errorf("expected explicit empty owner, got %q", meta.Owner)
	}
}

func TestIdentity(t *testing.T) {
	m := &module{}
	a := m.handle
	b := m.handle

	if Identity(a) != Identity(a) {
		t.Error("identity of the same value differs")
	}
	if Identity(a) == Identity(b) {
		t.Error("two method values share an identity")
	}
	if Identity(nil) != nil {
		t.Error("nil has an identity")
	}
}

func TestSubscriptionUnsubscribe(t *testing.T) {
	calls := 0
	sub := NewSubscription("id-1", "chan", "owner", func() bool {
		calls++
		return true
	})

	if sub.ID() != "id-1" || sub.Channel() != "chan" || sub.Owner() != "owner" {
		t.Errorf("unexpected handle fields %q %q %q", sub.ID(), sub.Channel(), sub.Owner())
	}
	if !sub.Unsubscribe() {
		t.Error("first Unsubscribe returned false")
	}
	if sub.Unsubscribe() {
		t.Error("second Unsubscribe returned true")
	}
	if calls != 1 {
		t.Errorf("expected cancel once, got %d", calls)
	}

	var nilSub *Subscription
	if nilSub.Unsubscribe() {
		t.Error("nil subscription unsubscribed")
	}
}

func TestContextChannel(t *testing.T) {
	if got := ContextChannel(context.Background()); got != "" {
		t.Errorf("expected empty channel, got %q", got)
	}
	ctx := ContextWithChannel(context.Background(), "server.tick")
	if got := ContextChannel(ctx); got != "server.tick" {
		t.Errorf("expected server.tick, got %q", got)
	}
}

func TestNewID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("duplicate ID %q", id)
		}
		seen[id] = true
	}
}
