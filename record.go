package nativetimer

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"braces.dev/errtrace"
	"github.com/qmuntal/stateless"

	"github.com/ghettovoice/nativetimer/backend"
	"github.com/ghettovoice/nativetimer/internal/dispatch"
	"github.com/ghettovoice/nativetimer/internal/errorutil"
	"github.com/ghettovoice/nativetimer/internal/liveness"
)

// TimerID identifies a timer within the process.
// IDs are drawn from a process-wide counter and never reused.
type TimerID uint64

var lastTimerID atomic.Uint64

func nextTimerID() TimerID { return TimerID(lastTimerID.Add(1)) }

// tracker is the process-wide liveness registry consulted by the notification entry point.
var tracker liveness.Tracker[*timerRecord]

const (
	tmrEvtFire   = "fire"
	tmrEvtReturn = "return"
	tmrEvtRearm  = "rearm"
	tmrEvtCancel = "cancel"
	tmrEvtClose  = "close"
)

var durType = reflect.TypeOf(time.Duration(0))

// timerRecord is the state of one scheduled callback.
// All state machine transitions are fired under mu.
type timerRecord struct {
	id   TimerID
	hint CallbackHint
	core *queueCore
	// oneshot records are created by FireOneshot, they close themselves after the firing
	// and keep the queue alive until then.
	oneshot bool
	keep    *Queue

	state  atomic.Uint32
	live   *liveness.Entry[*timerRecord]
	closed chan struct{}

	mu       sync.Mutex
	fsm      *stateless.StateMachine
	handler  func()
	due      time.Duration
	period   time.Duration
	handle   backend.Handle
	slow     *dispatch.SlowWorker
	inflight chan struct{}
}

func newTimerRecord(
	c *queueCore,
	id TimerID,
	due, period time.Duration,
	hint CallbackHint,
	fn func(),
) *timerRecord {
	r := &timerRecord{
		id:      id,
		hint:    hint,
		core:    c,
		handler: fn,
		due:     due,
		period:  period,
		closed:  make(chan struct{}),
	}
	r.state.Store(uint32(TimerStateScheduled))
	r.initFSM()
	return r
}

func (r *timerRecord) initFSM() {
	r.fsm = stateless.NewStateMachineWithExternalStorage(
		func(context.Context) (stateless.State, error) { return r.State(), nil },
		func(_ context.Context, s stateless.State) error {
			r.state.Store(uint32(s.(TimerState))) //nolint:forcetypeassert
			return nil
		},
		stateless.FiringImmediate,
	)

	r.fsm.SetTriggerParameters(tmrEvtRearm, durType, durType)

	r.fsm.Configure(TimerStateScheduled).
		OnEntryFrom(tmrEvtReturn, r.actReturned).
		InternalTransition(tmrEvtRearm, r.actRearm).
		Permit(tmrEvtFire, TimerStateFiring).
		Permit(tmrEvtCancel, TimerStateCancelling)

	r.fsm.Configure(TimerStateFiring).
		OnEntry(r.actFiring).
		InternalTransition(tmrEvtRearm, r.actRearm).
		Permit(tmrEvtReturn, TimerStateScheduled).
		Permit(tmrEvtCancel, TimerStateCancelling)

	r.fsm.Configure(TimerStateCancelling).
		OnEntry(r.actCancelling).
		InternalTransition(tmrEvtReturn, r.actReturned).
		Ignore(tmrEvtFire).
		Ignore(tmrEvtCancel).
		Permit(tmrEvtClose, TimerStateClosed)

	r.fsm.Configure(TimerStateClosed).
		OnEntry(r.actClosed).
		Ignore(tmrEvtFire).
		Ignore(tmrEvtCancel).
		Ignore(tmrEvtClose)
}

// State returns the current state of the record.
func (r *timerRecord) State() TimerState { return TimerState(r.state.Load()) }

// LogValue implements [slog.LogValuer].
func (r *timerRecord) LogValue() slog.Value {
	if r == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.Uint64("id", uint64(r.id)),
		slog.Any("hint", r.hint),
		slog.Any("state", r.State()),
	)
}

func (r *timerRecord) actFiring(context.Context, ...any) error {
	r.inflight = make(chan struct{})
	return nil
}

func (r *timerRecord) actReturned(context.Context, ...any) error {
	if r.inflight != nil {
		close(r.inflight)
		r.inflight = nil
	}
	return nil
}

func (r *timerRecord) actRearm(ctx context.Context, args ...any) error {
	due := args[0].(time.Duration)    //nolint:forcetypeassert
	period := args[1].(time.Duration) //nolint:forcetypeassert

	h, err := r.core.backend.Arm(due, period, backend.Token(r.id))
	if err != nil {
		return errtrace.Wrap(newBackendError(err))
	}

	old := r.handle
	r.handle, r.due, r.period = h, due, period
	if err := r.core.backend.Cancel(old); err != nil {
		r.core.log.LogAttrs(ctx, slog.LevelWarn,
			"failed to cancel replaced native timer",
			slog.Any("timer", r),
			slog.Any("error", err),
		)
	}

	r.core.log.LogAttrs(ctx, slog.LevelDebug,
		"timer re-armed",
		slog.Any("timer", r),
		slog.Duration("due", due),
		slog.Duration("period", period),
	)
	return nil
}

func (r *timerRecord) actCancelling(ctx context.Context, _ ...any) error {
	r.core.log.LogAttrs(ctx, slog.LevelDebug, "timer cancelling", slog.Any("timer", r))
	return nil
}

func (r *timerRecord) actClosed(ctx context.Context, _ ...any) error {
	r.handler = nil
	r.keep = nil
	r.core.log.LogAttrs(ctx, slog.LevelDebug, "timer closed", slog.Any("timer", r))
	return nil
}

// dispatch routes a notification to the worker selected by the hint.
// Every notification results in one run, a busy worker delays it.
func (r *timerRecord) dispatch() {
	if !r.hint.IsSlow() {
		r.core.quick.Submit(r.run)
		return
	}

	r.mu.Lock()
	if r.State().IsClosing() {
		r.mu.Unlock()
		return
	}
	if r.slow == nil {
		r.slow = dispatch.NewSlowWorker(r.run, r.core.log)
	}
	w := r.slow
	r.mu.Unlock()

	w.Kick()
}

// run executes one firing of the record on a dispatch worker.
func (r *timerRecord) run() {
	if liveness.Enabled && !r.live.Alive() {
		return
	}

	ctx := context.Background()

	r.mu.Lock()
	if r.State() != TimerStateScheduled {
		r.mu.Unlock()
		return
	}
	if err := r.fsm.FireCtx(ctx, tmrEvtFire); err != nil {
		r.mu.Unlock()
		reportInvariant(ctx, r.core.log, err, slog.Any("timer", r))
		return
	}
	fn := r.handler
	r.mu.Unlock()

	r.core.log.LogAttrs(ctx, slog.LevelDebug, "timer fired", slog.Any("timer", r))

	if perr := dispatch.Call(fn); perr != nil {
		r.core.log.LogAttrs(ctx, slog.LevelError,
			"timer callback panicked",
			slog.Any("timer", r),
			slog.Any("panic", perr),
		)
	}

	r.mu.Lock()
	err := r.fsm.FireCtx(ctx, tmrEvtReturn)
	r.mu.Unlock()
	if err != nil {
		reportInvariant(ctx, r.core.log, err, slog.Any("timer", r))
	}

	if r.oneshot {
		r.teardown(ctx, true) //nolint:errcheck
	}
}

// rearm replaces the native timer of the record.
func (r *timerRecord) rearm(ctx context.Context, due, period time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.State().IsClosing() {
		return errtrace.Wrap(ErrAlreadyClosed)
	}
	return errtrace.Wrap(r.fsm.FireCtx(ctx, tmrEvtRearm, due, period))
}

// teardown cancels the native timer, waits for the running firing and releases the record.
// Only the first call performs the teardown, concurrent calls wait for it to complete.
// inWorker is set when called from the record's own firing, the call then neither waits
// for the dispatch worker nor for a teardown started by someone else.
func (r *timerRecord) teardown(ctx context.Context, inWorker bool) error {
	r.mu.Lock()
	switch r.State() {
	case TimerStateClosed:
		r.mu.Unlock()
		return nil
	case TimerStateCancelling:
		r.mu.Unlock()
		if !inWorker {
			<-r.closed
		}
		return nil
	}

	inflight := r.inflight
	if err := r.fsm.FireCtx(ctx, tmrEvtCancel); err != nil {
		r.mu.Unlock()
		reportInvariant(ctx, r.core.log, err, slog.Any("timer", r))
		return errtrace.Wrap(errorutil.NewInvariantError(err))
	}
	h, slow := r.handle, r.slow
	r.mu.Unlock()

	if liveness.Enabled {
		r.live.Kill()
	}
	if err := r.core.backend.Cancel(h); err != nil {
		r.core.log.LogAttrs(ctx, slog.LevelWarn,
			"failed to cancel native timer",
			slog.Any("timer", r),
			slog.Any("error", err),
		)
	}

	var overrun error
	if inflight != nil {
		overrun = r.await(ctx, inflight)
	}
	if slow != nil {
		slow.Close()
		if !inWorker {
			<-slow.Done()
		}
	}

	r.mu.Lock()
	err := r.fsm.FireCtx(ctx, tmrEvtClose)
	if liveness.Enabled {
		tracker.Remove(uint64(r.id))
	}
	r.core.forget(r.id)
	r.mu.Unlock()
	close(r.closed)

	if err != nil {
		reportInvariant(ctx, r.core.log, err, slog.Any("timer", r))
	}
	return errtrace.Wrap(overrun)
}

// await blocks until the running firing returns.
// The wait is never interrupted, passing the acceptable execution time is reported as an overrun.
func (r *timerRecord) await(ctx context.Context, inflight <-chan struct{}) error {
	limit := r.acceptableExecTime()
	tmr := time.NewTimer(limit)
	defer tmr.Stop()

	select {
	case <-inflight:
		return nil
	case <-tmr.C:
	}

	start := time.Now()
	r.core.log.LogAttrs(ctx, slog.LevelWarn,
		"timer callback overran acceptable execution time, waiting for it to return",
		slog.Any("timer", r),
		slog.Duration("acceptable", limit),
	)
	<-inflight
	r.core.log.LogAttrs(ctx, slog.LevelWarn,
		"overrunning timer callback returned",
		slog.Any("timer", r),
		slog.Duration("overrun", time.Since(start)),
	)

	return errorutil.NewWrapperError(ErrTeardownOverrun, "timer %d ran longer than %v", r.id, limit) //errtrace:skip
}

func (r *timerRecord) acceptableExecTime() time.Duration {
	if d := r.hint.AcceptableExecutionTime(); r.hint.IsSlow() && d > 0 {
		return d
	}
	return r.core.quickExec
}
