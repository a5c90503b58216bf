package nativetimer

import (
	"log/slog"
	"time"

	"github.com/ghettovoice/nativetimer/backend"
	"github.com/ghettovoice/nativetimer/internal/log"
)

// DefaultQuickExecutionTime is the default acceptable execution time of quick callbacks.
const DefaultQuickExecutionTime = 2 * time.Second

// QueueOptions are the options for a [Queue].
type QueueOptions struct {
	// Backend is the factory of the native timer backend the queue runs on.
	// If nil, the [backend.Default] is used.
	Backend backend.Factory
	// Log is the logger that will be used with the queue and its timers.
	// If nil, the logger set by [SetDefaultLogger] will be used.
	Log *slog.Logger
	// QuickExecutionTime is the time a quick callback is expected to finish in.
	// [Timer.Close] waiting longer than that for a running callback logs a warning and
	// returns [ErrTeardownOverrun]. It is also used for [Slow] hints with non-positive duration.
	// If zero, the [DefaultQuickExecutionTime] is used.
	QuickExecutionTime time.Duration
}

// SetDefaultLogger sets the logger used by queues created without explicit logger,
// including the [Default] queue if it was not created yet.
// Nil value restores the built-in console logger.
func SetDefaultLogger(l *slog.Logger) { log.SetDefault(l) }

func (o *QueueOptions) backendFactory() backend.Factory {
	if o == nil || o.Backend == nil {
		return backend.Default
	}
	return o.Backend
}

func (o *QueueOptions) log() *slog.Logger {
	if o == nil || o.Log == nil {
		return log.Default()
	}
	return o.Log
}

func (o *QueueOptions) quickExecTime() time.Duration {
	if o == nil || o.QuickExecutionTime <= 0 {
		return DefaultQuickExecutionTime
	}
	return o.QuickExecutionTime
}
