package backend

import (
	"sync"
	"time"

	"braces.dev/errtrace"

	"github.com/ghettovoice/nativetimer/internal/errorutil"
)

// Runtime is a portable backend built on Go runtime timers.
// Each expiration is delivered on the goroutine the runtime spawns for [time.AfterFunc].
type Runtime struct {
	entry EntryPoint

	mu     sync.Mutex
	timers map[Handle]*runtimeTimer
	next   Handle
	closed bool
}

type runtimeTimer struct {
	tok    Token
	period time.Duration
	// next expiration, periodic timers re-arm against it to avoid drift
	at        time.Time
	tmr       *time.Timer
	cancelled bool
}

// NewRuntime creates a new [Runtime] backend.
func NewRuntime(entry EntryPoint) (*Runtime, error) {
	if entry == nil {
		return nil, errtrace.Wrap(errorutil.NewInvalidArgumentError("nil entry point"))
	}
	return &Runtime{
		entry:  entry,
		timers: make(map[Handle]*runtimeTimer),
	}, nil
}

// RuntimeFactory is a [Factory] of [Runtime] backends.
func RuntimeFactory(entry EntryPoint) (Backend, error) {
	return errtrace.Wrap2(NewRuntime(entry))
}

// Arm implements [Backend].
func (b *Runtime) Arm(due, period time.Duration, tok Token) (Handle, error) {
	if err := validate(due, period); err != nil {
		return 0, errtrace.Wrap(err)
	}
	due = max(due, minDue)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, errtrace.Wrap(ErrClosed)
	}

	b.next++
	h := b.next
	t := &runtimeTimer{
		tok:    tok,
		period: period,
		at:     time.Now().Add(due),
	}
	t.tmr = time.AfterFunc(due, func() { b.expire(h, t) })
	b.timers[h] = t
	return h, nil
}

func (b *Runtime) expire(h Handle, t *runtimeTimer) {
	b.mu.Lock()
	if t.cancelled {
		b.mu.Unlock()
		return
	}
	if t.period > 0 {
		now := time.Now()
		t.at = t.at.Add(t.period)
		// skip expirations that were missed entirely
		if t.at.Before(now) {
			missed := now.Sub(t.at)/t.period + 1
			t.at = t.at.Add(missed * t.period)
		}
		t.tmr.Reset(t.at.Sub(now))
	} else {
		delete(b.timers, h)
	}
	b.mu.Unlock()

	b.entry(t.tok)
}

// Cancel implements [Backend].
func (b *Runtime) Cancel(h Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.timers[h]
	if !ok {
		if b.closed {
			return errtrace.Wrap(ErrClosed)
		}
		// one-shot timers forget themselves on expiration
		if h > 0 && h <= b.next {
			return nil
		}
		return errtrace.Wrap(ErrUnknownHandle)
	}
	delete(b.timers, h)
	t.cancelled = true
	t.tmr.Stop()
	return nil
}

// Close implements [Backend].
func (b *Runtime) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for h, t := range b.timers {
		t.cancelled = true
		t.tmr.Stop()
		delete(b.timers, h)
	}
	return nil
}

// Len returns the number of armed timers.
func (b *Runtime) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.timers)
}
