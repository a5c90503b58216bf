// Package liveness implements the registry that lets a notification entry point
// find out, without taking any lock, whether the timer it is about to dispatch
// is still alive.
package liveness

import (
	"sync"
	"sync/atomic"

	"github.com/ghettovoice/nativetimer/internal/errorutil"
)

// ErrDuplicateID is returned by [Tracker.Insert] when the id is already registered.
const ErrDuplicateID errorutil.Error = "duplicate liveness entry"

// Entry is a liveness flag of a registered object.
// The flag only ever transitions from alive to dead.
type Entry[T any] struct {
	val   T
	alive atomic.Bool
}

// Value returns the object the entry tracks.
func (e *Entry[T]) Value() T { return e.val }

// Alive reports whether the entry was not killed yet.
func (e *Entry[T]) Alive() bool {
	if e == nil {
		return false
	}
	return e.alive.Load()
}

// Kill marks the entry as dead.
// Returns false if the entry was already dead.
func (e *Entry[T]) Kill() bool {
	if e == nil {
		return false
	}
	return e.alive.CompareAndSwap(true, false)
}

// Tracker maps ids to liveness entries.
// Insert and Remove are serialized by a mutex, Lookup never blocks.
// Zero value is ready to use.
type Tracker[T any] struct {
	mu      sync.Mutex
	entries sync.Map // uint64 -> *Entry[T]
	size    atomic.Int64
}

// Insert registers a new alive entry.
func (t *Tracker[T]) Insert(id uint64, val T) (*Entry[T], error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries.Load(id); ok {
		return nil, errorutil.NewWrapperError(ErrDuplicateID, "id %d", id) //errtrace:skip
	}
	e := &Entry[T]{val: val}
	e.alive.Store(true)
	t.entries.Store(id, e)
	t.size.Add(1)
	return e, nil
}

// Lookup returns the entry registered with the id.
func (t *Tracker[T]) Lookup(id uint64) (*Entry[T], bool) {
	v, ok := t.entries.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Entry[T]), true //nolint:forcetypeassert
}

// Remove kills and deregisters the entry with the id.
// Returns false if nothing was registered with the id.
func (t *Tracker[T]) Remove(id uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.entries.LoadAndDelete(id)
	if !ok {
		return false
	}
	v.(*Entry[T]).Kill() //nolint:forcetypeassert
	t.size.Add(-1)
	return true
}

// Len returns the number of registered entries.
func (t *Tracker[T]) Len() int { return int(t.size.Load()) }
