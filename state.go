package nativetimer

import "log/slog"

// TimerState is the lifecycle state of a timer.
type TimerState uint32

const (
	// TimerStateScheduled means the native timer is armed and the callback is not running.
	TimerStateScheduled TimerState = iota
	// TimerStateFiring means the callback is running.
	TimerStateFiring
	// TimerStateCancelling means the native timer is cancelled and the timer is being
	// torn down, a callback that was running may still be completing.
	TimerStateCancelling
	// TimerStateClosed is the terminal state.
	TimerStateClosed
)

func (s TimerState) String() string {
	switch s {
	case TimerStateScheduled:
		return "scheduled"
	case TimerStateFiring:
		return "firing"
	case TimerStateCancelling:
		return "cancelling"
	case TimerStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// LogValue implements [slog.LogValuer].
func (s TimerState) LogValue() slog.Value { return slog.StringValue(s.String()) }

// IsClosing reports whether the timer teardown has started.
func (s TimerState) IsClosing() bool {
	return s == TimerStateCancelling || s == TimerStateClosed
}
