package nativetimer_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"github.com/ghettovoice/nativetimer"
	"github.com/ghettovoice/nativetimer/backend"
	"github.com/ghettovoice/nativetimer/internal/log"
	"github.com/ghettovoice/nativetimer/internal/testutil/backendmock"
)

// testLog returns the developer logger in verbose mode and the noop logger otherwise.
func testLog() *slog.Logger {
	if testing.Verbose() {
		return log.Dev
	}
	return log.Noop
}

// newMockQueue creates a queue on a mocked backend.
// Notifications are delivered by calling the returned entry point.
func newMockQueue(
	t *testing.T,
	opts *nativetimer.QueueOptions,
) (*nativetimer.Queue, *backendmock.MockBackend, backend.EntryPoint) {
	t.Helper()

	ctrl := gomock.NewController(t)
	b := backendmock.NewMockBackend(ctrl)

	var o nativetimer.QueueOptions
	if opts != nil {
		o = *opts
	}
	if o.Log == nil {
		o.Log = testLog()
	}

	var entry backend.EntryPoint
	o.Backend = func(ep backend.EntryPoint) (backend.Backend, error) {
		entry = ep
		return b, nil
	}

	q, err := nativetimer.NewQueue(&o)
	if err != nil {
		t.Fatalf("nativetimer.NewQueue() error = %v, want nil", err)
	}
	return q, b, entry
}

func closeMockQueue(t *testing.T, q *nativetimer.Queue, b *backendmock.MockBackend) {
	t.Helper()

	b.EXPECT().Close().Return(nil).Times(1)
	if err := q.Close(); err != nil {
		t.Fatalf("q.Close() error = %v, want nil", err)
	}
}

func waitChan[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		var zero T
		return zero
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestQueue_ScheduleOneshot(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	q, b, entry := newMockQueue(t, nil)

	b.EXPECT().Arm(time.Second, time.Duration(0), gomock.Any()).Return(backend.Handle(1), nil).Times(1)

	fired := make(chan struct{}, 1)
	var calls atomic.Int32
	tmr, err := q.ScheduleOneshot(time.Second, nativetimer.Quick(), func() {
		calls.Add(1)
		fired <- struct{}{}
	})
	if err != nil {
		t.Fatalf("q.ScheduleOneshot() error = %v, want nil", err)
	}
	if got, want := tmr.State(), nativetimer.TimerStateScheduled; got != want {
		t.Errorf("tmr.State() = %v, want %v", got, want)
	}
	if got, want := q.Len(), 1; got != want {
		t.Errorf("q.Len() = %d, want %d", got, want)
	}

	entry(backend.Token(tmr.ID()))
	waitChan(t, fired, "firing")

	b.EXPECT().Cancel(backend.Handle(1)).Return(nil).Times(1)
	if err := tmr.Close(); err != nil {
		t.Fatalf("tmr.Close() error = %v, want nil", err)
	}
	if err := tmr.Close(); err != nil {
		t.Errorf("second tmr.Close() error = %v, want nil", err)
	}
	if got, want := tmr.State(), nativetimer.TimerStateClosed; got != want {
		t.Errorf("tmr.State() = %v, want %v", got, want)
	}
	if got, want := q.Len(), 0; got != want {
		t.Errorf("q.Len() = %d, want %d", got, want)
	}

	// a notification that was in flight during Close is dropped
	entry(backend.Token(tmr.ID()))
	time.Sleep(20 * time.Millisecond)
	if got, want := calls.Load(), int32(1); got != want {
		t.Errorf("calls = %d, want %d", got, want)
	}

	closeMockQueue(t, q, b)
}

func TestQueue_ScheduleTimer_InvalidArgument(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	q, b, _ := newMockQueue(t, nil)
	defer closeMockQueue(t, q, b)

	fn := func() {}
	cases := []struct {
		name string
		call func() error
	}{
		{"nil callback", func() error {
			_, err := q.ScheduleTimer(0, 0, nativetimer.Quick(), nil)
			return err
		}},
		{"negative due", func() error {
			_, err := q.ScheduleTimer(-time.Second, 0, nativetimer.Quick(), fn)
			return err
		}},
		{"negative period", func() error {
			_, err := q.ScheduleTimer(time.Second, -time.Second, nativetimer.Quick(), fn)
			return err
		}},
		{"zero interval", func() error {
			_, err := q.ScheduleInterval(0, nativetimer.Quick(), fn)
			return err
		}},
		{"fire oneshot nil callback", func() error {
			return q.FireOneshot(time.Second, nativetimer.Slow(time.Second), nil)
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := c.call()
			if diff := cmp.Diff(got, error(nativetimer.ErrInvalidArgument), cmpopts.EquateErrors()); diff != "" {
				t.Errorf("error = %v, want %v\ndiff (-got +want):\n%v", got, nativetimer.ErrInvalidArgument, diff)
			}
		})
	}
	if got, want := q.Len(), 0; got != want {
		t.Errorf("q.Len() = %d, want %d", got, want)
	}
}

func TestQueue_ScheduleTimer_BackendFailure(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	q, b, entry := newMockQueue(t, nil)
	defer closeMockQueue(t, q, b)

	armErr := errors.New("no more timers")
	var tok backend.Token
	b.EXPECT().
		Arm(time.Second, time.Second, gomock.Any()).
		DoAndReturn(func(_, _ time.Duration, tk backend.Token) (backend.Handle, error) {
			tok = tk
			return 0, armErr
		}).
		Times(1)

	var calls atomic.Int32
	tmr, err := q.ScheduleTimer(time.Second, time.Second, nativetimer.Quick(), func() { calls.Add(1) })
	if tmr != nil {
		t.Errorf("q.ScheduleTimer() = %v, want nil", tmr)
	}
	if diff := cmp.Diff(err, error(nativetimer.ErrBackendFailure), cmpopts.EquateErrors()); diff != "" {
		t.Errorf("q.ScheduleTimer() error = %v, want %v\ndiff (-got +want):\n%v", err, nativetimer.ErrBackendFailure, diff)
	}
	if !errors.Is(err, armErr) {
		t.Errorf("q.ScheduleTimer() error = %v, want wrapping %v", err, armErr)
	}
	if got, want := q.Len(), 0; got != want {
		t.Errorf("q.Len() = %d, want %d", got, want)
	}

	// the record was rolled back, a stray notification is dropped
	entry(tok)
	time.Sleep(20 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("calls = %d, want 0", got)
	}
}

func TestNewQueue_BackendFailure(t *testing.T) {
	t.Parallel()

	want := errors.New("no timerfd")
	q, err := nativetimer.NewQueue(&nativetimer.QueueOptions{
		Backend: func(backend.EntryPoint) (backend.Backend, error) { return nil, want },
		Log:     log.Noop,
	})
	if q != nil {
		t.Errorf("nativetimer.NewQueue() = %v, want nil", q)
	}
	if !errors.Is(err, nativetimer.ErrBackendFailure) || !errors.Is(err, want) {
		t.Errorf("nativetimer.NewQueue() error = %v, want %v wrapping %v", err, nativetimer.ErrBackendFailure, want)
	}
}

func TestQueue_Close(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	q, b, _ := newMockQueue(t, nil)

	b.EXPECT().Arm(gomock.Any(), gomock.Any(), gomock.Any()).Return(backend.Handle(1), nil)
	b.EXPECT().Arm(gomock.Any(), gomock.Any(), gomock.Any()).Return(backend.Handle(2), nil)
	b.EXPECT().Arm(gomock.Any(), gomock.Any(), gomock.Any()).Return(backend.Handle(3), nil)

	tmr1, err := q.ScheduleOneshot(time.Hour, nativetimer.Quick(), func() {})
	if err != nil {
		t.Fatalf("q.ScheduleOneshot() error = %v, want nil", err)
	}
	tmr2, err := q.ScheduleInterval(time.Hour, nativetimer.Slow(time.Second), func() {})
	if err != nil {
		t.Fatalf("q.ScheduleInterval() error = %v, want nil", err)
	}
	if err := q.FireOneshot(time.Hour, nativetimer.Quick(), func() {}); err != nil {
		t.Fatalf("q.FireOneshot() error = %v, want nil", err)
	}
	if got, want := q.Len(), 3; got != want {
		t.Errorf("q.Len() = %d, want %d", got, want)
	}

	b.EXPECT().Cancel(backend.Handle(1)).Return(nil)
	b.EXPECT().Cancel(backend.Handle(2)).Return(nil)
	b.EXPECT().Cancel(backend.Handle(3)).Return(nil)
	closeMockQueue(t, q, b)

	if err := q.Close(); err != nil {
		t.Errorf("second q.Close() error = %v, want nil", err)
	}
	for _, tmr := range []*nativetimer.Timer{tmr1, tmr2} {
		if got, want := tmr.State(), nativetimer.TimerStateClosed; got != want {
			t.Errorf("timer %d state = %v, want %v", tmr.ID(), got, want)
		}
		if err := tmr.Close(); err != nil {
			t.Errorf("tmr.Close() error = %v, want nil", err)
		}
	}
	if got, want := q.Len(), 0; got != want {
		t.Errorf("q.Len() = %d, want %d", got, want)
	}

	_, err = q.ScheduleOneshot(time.Second, nativetimer.Quick(), func() {})
	if diff := cmp.Diff(err, error(nativetimer.ErrQueueClosed), cmpopts.EquateErrors()); diff != "" {
		t.Errorf("q.ScheduleOneshot() error = %v, want %v\ndiff (-got +want):\n%v", err, nativetimer.ErrQueueClosed, diff)
	}
	err = q.FireOneshot(time.Second, nativetimer.Quick(), func() {})
	if diff := cmp.Diff(err, error(nativetimer.ErrQueueClosed), cmpopts.EquateErrors()); diff != "" {
		t.Errorf("q.FireOneshot() error = %v, want %v\ndiff (-got +want):\n%v", err, nativetimer.ErrQueueClosed, diff)
	}
}

func TestQueue_Close_BackendFailure(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	q, b, _ := newMockQueue(t, nil)

	want := errors.New("epoll gone")
	b.EXPECT().Close().Return(want).Times(1)

	err := q.Close()
	if !errors.Is(err, nativetimer.ErrBackendFailure) || !errors.Is(err, want) {
		t.Errorf("q.Close() error = %v, want %v wrapping %v", err, nativetimer.ErrBackendFailure, want)
	}
	// the result of the first close is kept
	if got := q.Close(); !errors.Is(got, want) {
		t.Errorf("second q.Close() error = %v, want %v", got, want)
	}
}

func TestDefault(t *testing.T) {
	t.Parallel()

	q := nativetimer.Default()
	if q != nativetimer.Default() {
		t.Error("nativetimer.Default() returned different queues")
	}

	got := q.Close()
	if diff := cmp.Diff(got, error(nativetimer.ErrActionNotAllowed), cmpopts.EquateErrors()); diff != "" {
		t.Errorf("q.Close() error = %v, want %v\ndiff (-got +want):\n%v", got, nativetimer.ErrActionNotAllowed, diff)
	}
}

func TestQueue_FireOneshot(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	q, b, entry := newMockQueue(t, nil)

	var tok backend.Token
	b.EXPECT().
		Arm(10*time.Millisecond, time.Duration(0), gomock.Any()).
		DoAndReturn(func(_, _ time.Duration, tk backend.Token) (backend.Handle, error) {
			tok = tk
			return 7, nil
		}).
		Times(1)
	b.EXPECT().Cancel(backend.Handle(7)).Return(nil).Times(1)

	fired := make(chan struct{}, 1)
	var calls atomic.Int32
	err := q.FireOneshot(10*time.Millisecond, nativetimer.Slow(time.Second), func() {
		calls.Add(1)
		fired <- struct{}{}
	})
	if err != nil {
		t.Fatalf("q.FireOneshot() error = %v, want nil", err)
	}

	entry(tok)
	waitChan(t, fired, "firing")
	eventually(t, "self-cleaning of the fired timer", func() bool { return q.Len() == 0 })

	entry(tok)
	time.Sleep(20 * time.Millisecond)
	if got, want := calls.Load(), int32(1); got != want {
		t.Errorf("calls = %d, want %d", got, want)
	}

	closeMockQueue(t, q, b)
}

func TestSetDefaultLogger(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var buf bytes.Buffer
	nativetimer.SetDefaultLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer nativetimer.SetDefaultLogger(nil)

	ctrl := gomock.NewController(t)
	b := backendmock.NewMockBackend(ctrl)
	q, err := nativetimer.NewQueue(&nativetimer.QueueOptions{
		Backend: func(backend.EntryPoint) (backend.Backend, error) { return b, nil },
	})
	if err != nil {
		t.Fatalf("nativetimer.NewQueue() error = %v, want nil", err)
	}

	b.EXPECT().Arm(time.Second, time.Duration(0), gomock.Any()).Return(backend.Handle(1), nil)
	b.EXPECT().Cancel(backend.Handle(1)).Return(nil)
	tmr, err := q.ScheduleOneshot(time.Second, nativetimer.Quick(), func() {})
	if err != nil {
		t.Fatalf("q.ScheduleOneshot() error = %v, want nil", err)
	}
	if err := tmr.Close(); err != nil {
		t.Errorf("tmr.Close() error = %v, want nil", err)
	}
	closeMockQueue(t, q, b)

	for _, msg := range []string{"timer scheduled", "timer closed", "timer queue closed"} {
		if !strings.Contains(buf.String(), msg) {
			t.Errorf("default logger output misses %q:\n%s", msg, buf.String())
		}
	}
}
