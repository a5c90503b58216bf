package nativetimer

import "github.com/ghettovoice/nativetimer/internal/errorutil"

// Common errors.
const (
	ErrInvalidArgument        = errorutil.ErrInvalidArgument
	ErrActionNotAllowed Error = "action not allowed"
)

// Timer errors.
const (
	// ErrBackendFailure is returned when the native timer backend rejects a request.
	ErrBackendFailure Error = "timer backend failure"
	// ErrAlreadyClosed is returned by operations on a closed timer.
	ErrAlreadyClosed Error = "timer already closed"
	// ErrTeardownOverrun is returned by [Timer.Close] when the running callback
	// did not return within its acceptable execution time.
	// The timer is closed anyway.
	ErrTeardownOverrun Error = "timer callback overran acceptable execution time"
	// ErrQueueClosed is returned when scheduling on a closed queue.
	ErrQueueClosed Error = "timer queue closed"
)

// Error represents a timer error.
// See [errorutil.Error].
type Error = errorutil.Error

// NewInvalidArgumentError creates a new error with [ErrInvalidArgument] or
// wraps provided error with [ErrInvalidArgument].
func NewInvalidArgumentError(args ...any) error {
	return errorutil.NewInvalidArgumentError(args...) //errtrace:skip
}

func newBackendError(err error) error {
	return errorutil.NewWrapperError(ErrBackendFailure, err) //errtrace:skip
}
