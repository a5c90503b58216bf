package dispatch

import (
	"fmt"
	"runtime"
)

// PanicError wraps a recovered panic value together with the goroutine
// stack trace captured at the point of the panic.
type PanicError struct {
	// Value is the original value passed to panic().
	Value any
	// Stack is the goroutine stack trace at the point of panic.
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func newPanicError(v any) *PanicError {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return &PanicError{
		Value: v,
		Stack: string(buf[:n]),
	}
}

// Call invokes fn and converts a panic raised by it into [PanicError].
func Call(fn func()) (perr *PanicError) {
	defer func() {
		if v := recover(); v != nil {
			perr = newPanicError(v)
		}
	}()
	fn()
	return nil
}
