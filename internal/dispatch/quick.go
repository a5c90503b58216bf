package dispatch

import (
	"context"
	"log/slog"
	"sync"
)

// QuickWorker executes tasks one by one on a single goroutine in FIFO order.
type QuickWorker struct {
	log *slog.Logger

	mu     sync.Mutex
	tasks  []func()
	closed bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

// NewQuickWorker creates and starts a new quick worker.
func NewQuickWorker(log *slog.Logger) *QuickWorker {
	w := &QuickWorker{
		log:  log,
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go w.serve()
	return w
}

// Submit appends the task to the worker queue.
// Returns false if the worker is closed.
func (w *QuickWorker) Submit(task func()) bool {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return false
	}
	w.tasks = append(w.tasks, task)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return true
}

// Len returns the number of tasks waiting for execution.
func (w *QuickWorker) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.tasks)
}

// Close stops accepting new tasks and waits until the worker goroutine exits.
// Tasks submitted before Close are still executed.
// Close must not be called from a task running on this worker.
func (w *QuickWorker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.done
		return
	}
	w.closed = true
	w.mu.Unlock()

	close(w.quit)
	<-w.done
}

// Done returns a channel that is closed when the worker goroutine exits.
func (w *QuickWorker) Done() <-chan struct{} { return w.done }

func (w *QuickWorker) pop() (func(), bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.tasks) == 0 {
		return nil, false
	}
	task := w.tasks[0]
	w.tasks[0] = nil
	w.tasks = w.tasks[1:]
	if len(w.tasks) == 0 {
		w.tasks = nil
	}
	return task, true
}

func (w *QuickWorker) serve() {
	defer close(w.done)

	for {
		task, ok := w.pop()
		if !ok {
			select {
			case <-w.wake:
				continue
			case <-w.quit:
				if w.Len() > 0 {
					continue
				}
				return
			}
		}

		if perr := Call(task); perr != nil {
			w.log.LogAttrs(context.Background(), slog.LevelError, "quick task panicked", slog.Any("panic", perr))
		}
	}
}
