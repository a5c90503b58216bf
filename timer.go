package nativetimer

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"braces.dev/errtrace"
)

// Timer is a handle of a scheduled callback.
// Use [Timer.Close] to stop the timer, typically with defer.
// A timer that becomes unreachable without being closed is closed in background.
type Timer struct {
	q       *Queue
	rec     *timerRecord
	cleanup runtime.Cleanup
}

func newTimer(q *Queue, r *timerRecord) *Timer {
	t := &Timer{q: q, rec: r}
	t.cleanup = runtime.AddCleanup(t, func(r *timerRecord) {
		go r.teardown(context.Background(), false) //nolint:errcheck
	}, r)
	return t
}

// ID returns the process-wide unique id of the timer.
func (t *Timer) ID() TimerID { return t.rec.id }

// Hint returns the hint the timer was scheduled with.
func (t *Timer) Hint() CallbackHint { return t.rec.hint }

// State returns the current state of the timer.
func (t *Timer) State() TimerState { return t.rec.State() }

// LogValue implements [slog.LogValuer].
func (t *Timer) LogValue() slog.Value {
	if t == nil {
		return slog.Value{}
	}
	return t.rec.LogValue()
}

// ChangePeriod re-arms the native timer to expire after due and then every period.
// Zero period makes the timer one-shot.
// Returns [ErrAlreadyClosed] if the timer is closed.
func (t *Timer) ChangePeriod(due, period time.Duration) error {
	if due < 0 {
		return errtrace.Wrap(NewInvalidArgumentError("negative due %v", due))
	}
	if period < 0 {
		return errtrace.Wrap(NewInvalidArgumentError("negative period %v", period))
	}
	return errtrace.Wrap(t.rec.rearm(context.Background(), due, period))
}

// Close stops the timer. If the callback is running, Close blocks until it returns,
// no callback runs after Close has returned.
//
// Close never interrupts the callback. If the callback runs longer than its acceptable
// execution time (see [CallbackHint] and [QueueOptions.QuickExecutionTime]) the overrun is
// logged and Close returns an error wrapping [ErrTeardownOverrun] after the timer is closed.
//
// Repeated calls return nil. Concurrent calls wait for the first one to complete.
// Close must not be called from the timer's own callback.
func (t *Timer) Close() error {
	err := t.rec.teardown(context.Background(), false)
	t.cleanup.Stop()
	runtime.KeepAlive(t)
	return errtrace.Wrap(err)
}
