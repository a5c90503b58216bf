//go:build linux

package backend_test

import (
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/ghettovoice/nativetimer/backend"
)

func TestTimerfd(t *testing.T) {
	testBackend(t, backend.TimerfdFactory)

	if _, err := backend.NewTimerfd(nil); err == nil {
		t.Error("backend.NewTimerfd(nil) error = nil, want error")
	}
}

func TestTimerfd_Len(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rec := newRecorder()
	b, err := backend.NewTimerfd(rec.entry)
	if err != nil {
		t.Fatalf("backend.NewTimerfd() error = %v, want nil", err)
	}

	h1, _ := b.Arm(time.Hour, 0, 1)
	if _, err := b.Arm(10*time.Millisecond, 0, 2); err != nil {
		t.Fatalf("b.Arm() error = %v, want nil", err)
	}
	<-rec.ch

	// the expired one-shot descriptor is released by the poller
	if got, want := b.Len(), 1; got != want {
		t.Errorf("b.Len() = %d, want %d", got, want)
	}
	if err := b.Cancel(h1); err != nil {
		t.Errorf("b.Cancel() error = %v, want nil", err)
	}
	if got, want := b.Len(), 0; got != want {
		t.Errorf("b.Len() = %d, want %d", got, want)
	}
	if err := b.Close(); err != nil {
		t.Errorf("b.Close() error = %v, want nil", err)
	}
}
