package dispatch

import (
	"context"
	"log/slog"
	"sync"
)

// SlowWorker runs a single task on a dedicated goroutine each time it is kicked.
// Kicks are counted, the task runs once per kick, one run after another.
type SlowWorker struct {
	task func()
	log  *slog.Logger

	mu      sync.Mutex
	pending int
	closed  bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

// NewSlowWorker creates and starts a worker dedicated to the task.
func NewSlowWorker(task func(), log *slog.Logger) *SlowWorker {
	w := &SlowWorker{
		task: task,
		log:  log,
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go w.serve()
	return w
}

// Kick requests one more run of the task.
// Returns false if the worker is closed.
func (w *SlowWorker) Kick() bool {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return false
	}
	w.pending++
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return true
}

// Pending returns the number of runs waiting for execution.
func (w *SlowWorker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending
}

// Close stops the worker and discards pending runs. It does not wait for the running task,
// so it is safe to call from the task itself. Use [SlowWorker.Done] to wait.
func (w *SlowWorker) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.closed = true
	w.pending = 0
	close(w.quit)
}

// Done returns a channel that is closed when the worker goroutine exits.
func (w *SlowWorker) Done() <-chan struct{} { return w.done }

func (w *SlowWorker) take() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.pending == 0 {
		return false
	}
	w.pending--
	return true
}

func (w *SlowWorker) serve() {
	defer close(w.done)

	for {
		if !w.take() {
			select {
			case <-w.wake:
				continue
			case <-w.quit:
				return
			}
		}

		if perr := Call(w.task); perr != nil {
			w.log.LogAttrs(context.Background(), slog.LevelError, "slow task panicked", slog.Any("panic", perr))
		}
	}
}
