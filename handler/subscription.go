package handler

import "sync/atomic"

// Subscription is the handle returned by a registration. Unsubscribe removes exactly
// that registration, which also works for callbacks whose reference cannot be kept
// (method values, closures built inline).
type Subscription struct {
	id      string
	channel string
	owner   Owner
	cancel  func() bool
	done    int32
}

// NewSubscription creates a handle whose Unsubscribe calls cancel at most once.
func NewSubscription(id, channel string, owner Owner, cancel func() bool) *Subscription {
	return &Subscription{id: id, channel: channel, owner: owner, cancel: cancel}
}

// ID returns the subscription ID.
func (s *Subscription) ID() string { return s.id }

// Channel returns the channel the subscription was registered on.
func (s *Subscription) Channel() string { return s.channel }

// Owner returns the owner the subscription is attributed to.
func (s *Subscription) Owner() Owner { return s.owner }

// Unsubscribe removes the registration. It returns false if it was already removed,
// by this handle or by any other path (Off, Clear, owner teardown, one-shot firing).
func (s *Subscription) Unsubscribe() bool {
	if s == nil || !atomic.CompareAndSwapInt32(&s.done, 0, 1) {
		return false
	}
	return s.cancel()
}
