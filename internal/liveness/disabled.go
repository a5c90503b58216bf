//go:build nativetimer_noliveness

package liveness

// Enabled reports whether timer queues consult the liveness tracker
// before dispatching a notification.
const Enabled = false
