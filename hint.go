package nativetimer

import (
	"fmt"
	"log/slog"
	"time"
)

// CallbackHint declares the expected execution cost of a timer callback.
// It selects the worker the callback runs on and how long [Timer.Close] waits
// for a running callback before reporting an overrun.
// Zero value is [Quick].
type CallbackHint struct {
	slow       bool
	acceptable time.Duration
}

// Quick returns the hint of a short callback.
// Quick callbacks of a queue run one by one on the queue's shared worker,
// a long quick callback delays all the others.
func Quick() CallbackHint { return CallbackHint{} }

// Slow returns the hint of a callback that may run for up to d.
// Slow callbacks run on a worker dedicated to the timer.
// Non-positive d means the queue's quick execution time.
func Slow(d time.Duration) CallbackHint {
	return CallbackHint{slow: true, acceptable: d}
}

// IsSlow reports whether the hint was built with [Slow].
func (h CallbackHint) IsSlow() bool { return h.slow }

// AcceptableExecutionTime returns the duration passed to [Slow].
// It is zero for quick hints.
func (h CallbackHint) AcceptableExecutionTime() time.Duration { return h.acceptable }

func (h CallbackHint) String() string {
	if !h.slow {
		return "quick"
	}
	return fmt.Sprintf("slow(%v)", h.acceptable)
}

// LogValue implements [slog.LogValuer].
func (h CallbackHint) LogValue() slog.Value {
	if !h.slow {
		return slog.StringValue("quick")
	}
	return slog.GroupValue(
		slog.String("kind", "slow"),
		slog.Duration("acceptable", h.acceptable),
	)
}
