// Package nativetimer schedules one-shot and periodic callbacks on top of native
// operating system timers.
//
// A [Queue] owns a native timer backend and the workers that run callbacks.
// Callbacks declared with [Quick] share one worker of the queue and run one by one in
// firing order. Callbacks declared with [Slow] get a worker of their own for the whole
// lifetime of the timer.
//
// A callback never runs after [Timer.Close] has returned. Close cancels the native timer
// and, if the callback is running at that moment, blocks until it returns:
//
//	t, err := nativetimer.ScheduleInterval(time.Second, nativetimer.Quick(), func() {
//		fmt.Println("tick")
//	})
//	if err != nil {
//		return err
//	}
//	defer t.Close()
//
// Calling Close of a timer from its own callback is forbidden, the call would wait for itself.
//
// The notification entry point validates timers through a process-wide liveness tracker.
// Building with the nativetimer_noliveness tag removes the tracker, see [LivenessTracking].
// Building with the nativetimer_debug tag turns internal invariant violations into panics.
package nativetimer
