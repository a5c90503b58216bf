//go:build linux

package backend

import (
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"braces.dev/errtrace"
	"golang.org/x/sys/unix"

	"github.com/ghettovoice/nativetimer/internal/errorutil"
)

// Timerfd is a Linux backend: every timer is a timerfd(2) watched by one epoll(7)
// instance. Expirations are delivered on the backend's poller goroutine.
// Expirations missed while the poller was busy are delivered as one notification.
type Timerfd struct {
	entry  EntryPoint
	epfd   int
	wakefd int
	done   chan struct{}

	mu     sync.Mutex
	timers map[Handle]*fdTimer
	next   Handle
	closed bool
	err    error
}

type fdTimer struct {
	fd     int
	tok    Token
	period time.Duration
}

// wakeHandle marks the eventfd used to interrupt the poller. Timer handles start from 1.
const wakeHandle Handle = 0

// NewTimerfd creates a new [Timerfd] backend and starts its poller goroutine.
func NewTimerfd(entry EntryPoint) (*Timerfd, error) {
	if entry == nil {
		return nil, errtrace.Wrap(errorutil.NewInvalidArgumentError("nil entry point"))
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		unix.Close(epfd)
		return nil, errtrace.Wrap(err)
	}
	ev := pollEvent(wakeHandle)
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		unix.Close(wakefd)
		unix.Close(epfd)
		return nil, errtrace.Wrap(err)
	}

	b := &Timerfd{
		entry:  entry,
		epfd:   epfd,
		wakefd: wakefd,
		done:   make(chan struct{}),
		timers: make(map[Handle]*fdTimer),
	}
	go b.poll()
	return b, nil
}

// TimerfdFactory is a [Factory] of [Timerfd] backends.
func TimerfdFactory(entry EntryPoint) (Backend, error) {
	return errtrace.Wrap2(NewTimerfd(entry))
}

// Arm implements [Backend].
func (b *Timerfd) Arm(due, period time.Duration, tok Token) (Handle, error) {
	if err := validate(due, period); err != nil {
		return 0, errtrace.Wrap(err)
	}
	due = max(due, minDue)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, errtrace.Wrap(ErrClosed)
	}
	if b.err != nil {
		return 0, errtrace.Wrap(b.err)
	}

	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return 0, errtrace.Wrap(err)
	}

	b.next++
	h := b.next
	ev := pollEvent(h)
	if err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		unix.Close(fd)
		return 0, errtrace.Wrap(err)
	}

	spec := unix.ItimerSpec{
		Value:    unix.NsecToTimespec(int64(due)),
		Interval: unix.NsecToTimespec(int64(period)),
	}
	if err := unix.TimerfdSettime(fd, 0, &spec, nil); err != nil {
		unix.Close(fd)
		return 0, errtrace.Wrap(err)
	}

	b.timers[h] = &fdTimer{fd: fd, tok: tok, period: period}
	return h, nil
}

// Cancel implements [Backend].
func (b *Timerfd) Cancel(h Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.timers[h]
	if !ok {
		if b.closed {
			return errtrace.Wrap(ErrClosed)
		}
		if h > wakeHandle && h <= b.next {
			return nil
		}
		return errtrace.Wrap(ErrUnknownHandle)
	}
	delete(b.timers, h)
	// closing the descriptor also removes it from the epoll set
	return errtrace.Wrap(unix.Close(t.fd))
}

// Close implements [Backend].
func (b *Timerfd) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		<-b.done
		return nil
	}
	b.closed = true

	var errs []error
	for h, t := range b.timers {
		delete(b.timers, h)
		if err := unix.Close(t.fd); err != nil {
			errs = append(errs, err)
		}
	}
	b.mu.Unlock()

	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	if _, err := unix.Write(b.wakefd, buf[:]); err != nil {
		errs = append(errs, err)
	}
	<-b.done

	errs = append(errs, unix.Close(b.wakefd), unix.Close(b.epfd))
	return errtrace.Wrap(errors.Join(errs...))
}

// Len returns the number of armed timers.
func (b *Timerfd) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.timers)
}

func (b *Timerfd) poll() {
	defer close(b.done)

	events := make([]unix.EpollEvent, 128)
	for {
		n, err := unix.EpollWait(b.epfd, events, -1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			b.mu.Lock()
			b.err = err
			b.mu.Unlock()
			return
		}

		for i := range n {
			h := eventHandle(events[i])
			if h == wakeHandle {
				if b.isClosed() {
					return
				}
				continue
			}
			if tok, ok := b.consume(h); ok {
				b.entry(tok)
			}
		}
	}
}

func (b *Timerfd) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// consume reads the expiration counter of the timer.
// Handles released after the event was reported are skipped.
func (b *Timerfd) consume(h Handle) (Token, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.timers[h]
	if !ok {
		return 0, false
	}

	var buf [8]byte
	if _, err := unix.Read(t.fd, buf[:]); err != nil {
		// EAGAIN: the timer was re-armed or the expiration was already consumed
		return 0, false
	}
	if binary.NativeEndian.Uint64(buf[:]) == 0 {
		return 0, false
	}

	if t.period == 0 {
		delete(b.timers, h)
		unix.Close(t.fd)
	}
	return t.tok, true
}

func pollEvent(h Handle) unix.EpollEvent {
	return unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(uint32(h)),       //nolint:gosec
		Pad:    int32(uint32(h >> 32)), //nolint:gosec
	}
}

func eventHandle(ev unix.EpollEvent) Handle {
	return Handle(uint32(ev.Fd)) | Handle(uint32(ev.Pad))<<32
}
