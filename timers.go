package nativetimer

import (
	"time"

	"braces.dev/errtrace"
)

// ScheduleTimer schedules the callback on the [Default] queue.
// See [Queue.ScheduleTimer].
func ScheduleTimer(due, period time.Duration, hint CallbackHint, fn func()) (*Timer, error) {
	return errtrace.Wrap2(Default().ScheduleTimer(due, period, hint, fn))
}

// ScheduleOneshot schedules the callback to run once on the [Default] queue.
// See [Queue.ScheduleOneshot].
func ScheduleOneshot(due time.Duration, hint CallbackHint, fn func()) (*Timer, error) {
	return errtrace.Wrap2(Default().ScheduleOneshot(due, hint, fn))
}

// ScheduleInterval schedules the callback to run every interval on the [Default] queue.
// See [Queue.ScheduleInterval].
func ScheduleInterval(interval time.Duration, hint CallbackHint, fn func()) (*Timer, error) {
	return errtrace.Wrap2(Default().ScheduleInterval(interval, hint, fn))
}

// FireOneshot runs the callback once on the [Default] queue without returning a timer.
// See [Queue.FireOneshot].
func FireOneshot(due time.Duration, hint CallbackHint, fn func()) error {
	return errtrace.Wrap(Default().FireOneshot(due, hint, fn))
}
