package nativetimer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"braces.dev/errtrace"

	"github.com/ghettovoice/nativetimer/backend"
	"github.com/ghettovoice/nativetimer/internal/dispatch"
	"github.com/ghettovoice/nativetimer/internal/errorutil"
	"github.com/ghettovoice/nativetimer/internal/liveness"
	"github.com/ghettovoice/nativetimer/internal/log"
)

// LivenessTracking reports whether the notification entry point validates timers
// through the process-wide liveness tracker before dispatching them.
// It is disabled by the nativetimer_noliveness build tag, the entry point then looks timers
// up in the queue registry and relies on the timer state alone.
const LivenessTracking = liveness.Enabled

// Queue schedules timers on one native timer backend.
//
// A queue is released when it is closed or becomes unreachable together with all its
// timers and pending [Queue.FireOneshot] callbacks.
type Queue struct {
	core *queueCore
	def  bool
}

// queueCore is the state shared by the queue, its timers and the backend entry point.
// It never references the [Queue] so the queue can be collected while the backend still runs.
type queueCore struct {
	backend   backend.Backend
	quick     *dispatch.QuickWorker
	log       *slog.Logger
	quickExec time.Duration

	mu     sync.RWMutex
	timers map[TimerID]*timerRecord
	closed bool

	closeOnce sync.Once
	closeErr  error
}

// NewQueue creates a new [Queue] and starts its backend.
// Options are optional, if nil, default values are used (see [QueueOptions]).
func NewQueue(opts *QueueOptions) (*Queue, error) {
	c := &queueCore{
		log:       opts.log(),
		quickExec: opts.quickExecTime(),
		timers:    make(map[TimerID]*timerRecord),
	}

	b, err := opts.backendFactory()(c.entry)
	if err != nil {
		return nil, errtrace.Wrap(newBackendError(err))
	}
	c.backend = b
	c.quick = dispatch.NewQuickWorker(c.log)

	q := &Queue{core: c}
	runtime.AddCleanup(q, func(c *queueCore) {
		// cleanups share one goroutine, close may wait for running callbacks
		go c.close(context.Background()) //nolint:errcheck
	}, c)
	return q, nil
}

var defQueue = sync.OnceValue(func() *Queue {
	q, err := NewQueue(nil)
	if err != nil {
		log.Default().LogAttrs(context.Background(), slog.LevelWarn,
			"failed to start default timer backend, falling back to runtime timers",
			slog.Any("error", err),
		)
		q, err = NewQueue(&QueueOptions{Backend: backend.RuntimeFactory})
		if err != nil {
			panic(fmt.Errorf("start default timer queue: %w", err))
		}
	}
	q.def = true
	return q
})

// Default returns the process-wide queue. It is created on first use and never closed.
func Default() *Queue { return defQueue() }

// LogValue implements [slog.LogValuer].
func (q *Queue) LogValue() slog.Value {
	if q == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.Bool("default", q.def),
		slog.Int("timers", q.Len()),
	)
}

// ScheduleTimer schedules the callback to run after due and then every period.
// Zero period schedules a single run. The returned timer must be closed to stop it.
//
// Errors:
//   - [ErrInvalidArgument] for nil callback or negative durations;
//   - [ErrQueueClosed] if the queue is closed;
//   - [ErrBackendFailure] if the native timer could not be armed.
func (q *Queue) ScheduleTimer(due, period time.Duration, hint CallbackHint, fn func()) (*Timer, error) {
	r, err := q.core.schedule(context.Background(), due, period, hint, fn, nil)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	return newTimer(q, r), nil
}

// ScheduleOneshot schedules the callback to run once after due.
func (q *Queue) ScheduleOneshot(due time.Duration, hint CallbackHint, fn func()) (*Timer, error) {
	return errtrace.Wrap2(q.ScheduleTimer(due, 0, hint, fn))
}

// ScheduleInterval schedules the callback to run every interval.
func (q *Queue) ScheduleInterval(interval time.Duration, hint CallbackHint, fn func()) (*Timer, error) {
	if interval <= 0 {
		return nil, errtrace.Wrap(NewInvalidArgumentError("non-positive interval %v", interval))
	}
	return errtrace.Wrap2(q.ScheduleTimer(interval, interval, hint, fn))
}

// FireOneshot schedules the callback to run once after due without returning a timer.
// The queue stays alive until the callback returns and releases the timer afterwards.
func (q *Queue) FireOneshot(due time.Duration, hint CallbackHint, fn func()) error {
	_, err := q.core.schedule(context.Background(), due, 0, hint, fn, q)
	return errtrace.Wrap(err)
}

// Len returns the number of live timers of the queue.
func (q *Queue) Len() int {
	q.core.mu.RLock()
	defer q.core.mu.RUnlock()
	return len(q.core.timers)
}

// Close closes all timers of the queue, stops its workers and closes the backend.
// Scheduling on a closed queue fails with [ErrQueueClosed].
// The [Default] queue can not be closed, [ErrActionNotAllowed] is returned.
// Close must not be called from a callback of the queue.
func (q *Queue) Close() error {
	if q.def {
		return errtrace.Wrap(ErrActionNotAllowed)
	}
	return errtrace.Wrap(q.core.close(context.Background()))
}

func (c *queueCore) schedule(
	ctx context.Context,
	due, period time.Duration,
	hint CallbackHint,
	fn func(),
	keep *Queue,
) (*timerRecord, error) {
	if fn == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("nil callback"))
	}
	if due < 0 {
		return nil, errtrace.Wrap(NewInvalidArgumentError("negative due %v", due))
	}
	if period < 0 {
		return nil, errtrace.Wrap(NewInvalidArgumentError("negative period %v", period))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errtrace.Wrap(ErrQueueClosed)
	}

	r := newTimerRecord(c, nextTimerID(), due, period, hint, fn)
	if keep != nil {
		r.oneshot, r.keep = true, keep
	}
	if liveness.Enabled {
		e, err := tracker.Insert(uint64(r.id), r)
		if err != nil {
			reportInvariant(ctx, c.log, err, slog.Any("timer", r))
			return nil, errtrace.Wrap(errorutil.NewInvariantError(err))
		}
		r.live = e
	}
	c.timers[r.id] = r

	r.mu.Lock()
	h, err := c.backend.Arm(due, period, backend.Token(r.id))
	if err != nil {
		r.mu.Unlock()
		delete(c.timers, r.id)
		if liveness.Enabled {
			tracker.Remove(uint64(r.id))
		}
		return nil, errtrace.Wrap(newBackendError(err))
	}
	r.handle = h
	r.mu.Unlock()

	c.log.LogAttrs(ctx, slog.LevelDebug,
		"timer scheduled",
		slog.Any("timer", r),
		slog.Duration("due", due),
		slog.Duration("period", period),
	)
	return r, nil
}

// entry receives native timer notifications from the backend.
func (c *queueCore) entry(tok backend.Token) {
	r, ok := c.lookup(TimerID(tok))
	if !ok {
		c.log.LogAttrs(context.Background(), slog.LevelDebug,
			"notification of dead timer dropped",
			slog.Uint64("timer_id", uint64(tok)),
		)
		return
	}
	r.dispatch()
}

func (c *queueCore) lookup(id TimerID) (*timerRecord, bool) {
	if liveness.Enabled {
		e, ok := tracker.Lookup(uint64(id))
		if !ok || !e.Alive() {
			return nil, false
		}
		return e.Value(), true
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.timers[id]
	return r, ok
}

func (c *queueCore) forget(id TimerID) {
	c.mu.Lock()
	delete(c.timers, id)
	c.mu.Unlock()
}

func (c *queueCore) close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		c.closeErr = c.doClose(ctx)
	})
	return errtrace.Wrap(c.closeErr)
}

func (c *queueCore) doClose(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	recs := make([]*timerRecord, 0, len(c.timers))
	for _, r := range c.timers {
		recs = append(recs, r)
	}
	c.mu.Unlock()

	var errs []error
	for _, r := range recs {
		if err := r.teardown(ctx, false); err != nil {
			errs = append(errs, fmt.Errorf("close timer %d: %w", r.id, err))
		}
	}

	c.quick.Close()

	if err := c.backend.Close(); err != nil {
		errs = append(errs, newBackendError(err))
	}

	c.log.LogAttrs(ctx, slog.LevelDebug, "timer queue closed", slog.Int("timers", len(recs)))

	return errtrace.Wrap(errorutil.JoinPrefix("failed to close timer queue:", errs...))
}
