// Package scheduler implements the concurrent alarm queue.
//
// A Scheduler owns one Store (pending alarms ordered by due time) and one
// Registry (live alarm count and display worker per group), both guarded by a
// single mutex. A single loop goroutine waits for the earliest alarm and is
// woken through a one-slot channel whenever a request makes an earlier alarm
// (or a change to the awaited one) visible. Display workers announce the head
// alarm of their group on a fixed period until the group empties.
//
// Events are published to an events.Sink after the mutex is released.
package scheduler
