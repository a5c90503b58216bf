// Package backend defines the contract between a timer queue and the native timer
// facility it runs on, and provides the implementations available on this platform.
//
// A [Backend] arms native timers and, when they expire, calls the [EntryPoint] it
// was created with, passing the [Token] the timer was armed with. The entry point
// is called on a goroutine owned by the backend. A notification may already be in
// flight when [Backend.Cancel] returns, so the receiving side must be able to drop
// notifications for tokens it no longer knows.
package backend

//go:generate go tool mockgen -typed -destination=../internal/testutil/backendmock/backend.go -package=backendmock . Backend

import (
	"time"

	"github.com/ghettovoice/nativetimer/internal/errorutil"
)

// Token is an opaque value passed back to the entry point on each timer expiration.
type Token uint64

// Handle identifies a native timer armed by a backend.
type Handle uint64

// EntryPoint receives expiration notifications.
// It is called on backend-owned goroutines and must return quickly.
type EntryPoint func(tok Token)

// Backend arms and cancels native timers.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Arm arms a native timer that expires after due and then every period.
	// Zero period arms a one-shot timer.
	Arm(due, period time.Duration, tok Token) (Handle, error)
	// Cancel disarms and releases the native timer.
	// Cancelling a one-shot timer that already expired is not an error.
	Cancel(h Handle) error
	// Close cancels all armed timers and releases backend resources.
	Close() error
}

// Factory creates a backend that delivers notifications to the entry point.
type Factory func(entry EntryPoint) (Backend, error)

// Backend errors.
const (
	// ErrClosed is returned when the backend is already closed.
	ErrClosed errorutil.Error = "backend closed"
	// ErrUnknownHandle is returned by Cancel for a handle the backend never issued.
	ErrUnknownHandle errorutil.Error = "unknown timer handle"
)

// minDue is the shortest delay a native timer is armed with.
// Some facilities treat zero as "disarm".
const minDue = time.Nanosecond

func validate(due, period time.Duration) error {
	if due < 0 {
		return errorutil.NewInvalidArgumentError("negative due %v", due) //errtrace:skip
	}
	if period < 0 {
		return errorutil.NewInvalidArgumentError("negative period %v", period) //errtrace:skip
	}
	return nil
}
