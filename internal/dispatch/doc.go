// Package dispatch provides the execution substrate of a timer queue.
//
// [QuickWorker] is a single long-lived goroutine that executes submitted tasks strictly
// in submission order. It is shared by every quick timer of a queue, so a slow task delays
// all tasks queued after it.
//
// [SlowWorker] is a goroutine dedicated to one task. Each kick runs the task once, kicks
// that arrive while the task runs are counted and served one after another, so the task
// never runs concurrently with itself.
package dispatch
