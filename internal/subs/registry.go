// Package subs provides a small one-to-many subscriber registry with
// scope-bound cancellation tokens. It backs the fan-out paths of the level
// meter: refresh clock to meters, and meter to its viewers.
package subs

import "sync"

// Registry holds a set of subscribers of type T. Slots have stable indices,
// so iteration order matches subscription order for the lifetime of a pass,
// and unsubscribing from inside a callback never corrupts or skips other
// subscribers. The zero value is ready to use.
type Registry[T any] struct {
	mu    sync.Mutex
	slots []slot[T]
	free  []int
	n     int
	seq   uint64
}

// slot holds one subscriber. id is 0 while the slot is vacant; a recycled
// slot gets a fresh id so stale Subscription tokens cannot remove it.
type slot[T any] struct {
	value T
	id    uint64
}

// Subscription is the handle returned by Subscribe. Cancelling it removes
// the subscriber from the registry; cancelling twice is harmless.
type Subscription struct {
	cancel func()
}

// Cancel removes the subscription from its registry. After Cancel returns,
// a fan-out pass running on the same goroutine will not visit the
// subscriber again. Safe to call on a nil Subscription.
func (s *Subscription) Cancel() {
	if s == nil || s.cancel == nil {
		return
	}
	s.cancel()
}

// NewFuncSubscription wraps an arbitrary idempotent cancel function in a
// Subscription token, so a caller can layer extra teardown (stopping a
// timer, say) on top of a registry removal.
func NewFuncSubscription(cancel func()) *Subscription {
	return &Subscription{cancel: cancel}
}

// Subscribe adds v to the registry and returns its cancellation token.
func (r *Registry[T]) Subscribe(v T) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	id := r.seq

	var idx int
	if last := len(r.free) - 1; last >= 0 {
		idx = r.free[last]
		r.free = r.free[:last]
	} else {
		r.slots = append(r.slots, slot[T]{})
		idx = len(r.slots) - 1
	}
	r.slots[idx] = slot[T]{value: v, id: id}
	r.n++

	return &Subscription{cancel: func() { r.remove(idx, id) }}
}

// remove vacates the slot if it still holds the subscription identified by id.
func (r *Registry[T]) remove(idx int, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.slots[idx].id != id {
		return
	}
	r.slots[idx] = slot[T]{}
	r.free = append(r.free, idx)
	r.n--
}

// Len returns the number of active subscribers.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

// Each calls fn for every subscriber active when the pass starts, in slot
// order. Subscribers removed mid-pass are not visited afterwards, and
// subscribers added mid-pass are first visited on the next pass. fn is
// invoked without the registry lock held, so callbacks may subscribe or
// cancel freely.
func (r *Registry[T]) Each(fn func(T)) {
	type ref struct {
		idx int
		id  uint64
	}

	r.mu.Lock()
	snapshot := make([]ref, 0, r.n)
	for i := range r.slots {
		if r.slots[i].id != 0 {
			snapshot = append(snapshot, ref{idx: i, id: r.slots[i].id})
		}
	}
	r.mu.Unlock()

	for _, e := range snapshot {
		r.mu.Lock()
		if r.slots[e.idx].id != e.id {
			r.mu.Unlock()
			continue
		}
		v := r.slots[e.idx].value
		r.mu.Unlock()

		fn(v)
	}
}
