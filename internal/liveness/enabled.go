//go:build !nativetimer_noliveness

package liveness

// Enabled reports whether timer queues consult the liveness tracker
// before dispatching a notification.
// Build with the nativetimer_noliveness tag to disable it.
const Enabled = true
