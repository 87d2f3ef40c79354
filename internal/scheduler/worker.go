package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
)

// WorkerState is the lifecycle state of a display worker.
type WorkerState int32

const (
	// WorkerActive means the group has pending alarms.
	WorkerActive WorkerState = iota
	// WorkerStopping means the worker saw its stop request and is flushing notices.
	WorkerStopping
	// WorkerStopped is terminal.
	WorkerStopped
)

// String returns a human-readable representation of the state.
func (s WorkerState) String() string {
	switch s {
	case WorkerActive:
		return "active"
	case WorkerStopping:
		return "stopping"
	case WorkerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// WorkerInfo is a read-only view of a display worker.
type WorkerInfo struct {
	// ID identifies the worker.
	ID uint64
	// GroupID is the group the worker announces.
	GroupID int64
	// State is the lifecycle state at the time of the call.
	State WorkerState
}

// observation is what a worker reads from the scheduler on each tick.
type observation struct {
	// notices are snapshots of alarms that left the group since the last tick.
	notices []alarm.Alarm
	// head is the group alarm due first.
	head alarm.Alarm
	// hasHead is false when the group has no pending alarm.
	hasHead bool
	// stopping is true once the registry asked the worker to stop.
	stopping bool
}

// workerHost is the part of the scheduler a worker depends on.
type workerHost interface {
	// announce observes the worker's group under the scheduler lock, queues
	// the announcements in lock order and publishes them. It returns false
	// once the worker must stop.
	announce(ctx context.Context, w *Worker) bool
	// retire marks the worker stopped and publishes WorkerTerminated.
	retire(ctx context.Context, w *Worker)
}

// Worker periodically announces the head alarm of one group.
//
// Fields marked "guarded" are only touched while holding the scheduler mutex.
type Worker struct {
	host  workerHost
	clock clock.Clock
	done  chan struct{}

	// notices is guarded.
	notices []alarm.Alarm

	interval time.Duration
	id       uint64
	groupID  int64
	state    atomic.Int32

	// stopRequested is guarded.
	stopRequested bool
}

// newWorker creates a worker bound to a group. It does not start it.
func newWorker(host workerHost, clk clock.Clock, id uint64, groupID int64, interval time.Duration) *Worker {
	return &Worker{
		host:     host,
		clock:    clk,
		done:     make(chan struct{}),
		interval: interval,
		id:       id,
		groupID:  groupID,
	}
}

// ID returns the worker identifier.
func (w *Worker) ID() uint64 {
	return w.id
}

// GroupID returns the group the worker is bound to.
func (w *Worker) GroupID() int64 {
	return w.groupID
}

// State returns the current lifecycle state.
func (w *Worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

// Done is closed once the worker reached WorkerStopped.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Info returns a read-only view of the worker.
func (w *Worker) Info() WorkerInfo {
	return WorkerInfo{
		ID:      w.id,
		GroupID: w.groupID,
		State:   w.State(),
	}
}

// requestStop marks the worker for termination on its next tick. Guarded.
func (w *Worker) requestStop() {
	w.stopRequested = true
}

// addNotice queues a moved-out announcement for the next tick. Guarded.
func (w *Worker) addNotice(a alarm.Alarm) {
	w.notices = append(w.notices, a)
}

// run announces the group head every interval until the worker is stopped by
// the registry or ctx is cancelled. It never exits in the middle of a tick.
func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	ticker := w.clock.Ticker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.host.retire(context.WithoutCancel(ctx), w)

			return
		case <-ticker.C:
			if !w.host.announce(ctx, w) {
				w.host.retire(ctx, w)

				return
			}
		}
	}
}

// announcements builds the events of one tick: pending moved-out notices,
// then the group head unless the worker is stopping. Guarded.
func (w *Worker) announcements(obs observation, now time.Time) []alarm.Event {
	ticks := make([]alarm.Event, 0, len(obs.notices)+1)

	// Alarms that left the group are announced once, even when stopping.
	for _, a := range obs.notices {
		ticks = append(ticks, alarm.DisplayTick{
			At:       now,
			Message:  a.Message,
			WorkerID: w.id,
			AlarmID:  a.ID,
			GroupID:  a.GroupID,
			Tag:      alarm.TagGroupChanged,
		})
	}

	if !obs.stopping && obs.hasHead {
		tag := obs.head.Tag
		// An alarm moved into this group is new here.
		if tag == alarm.TagGroupChanged {
			tag = alarm.TagFresh
		}

		ticks = append(ticks, alarm.DisplayTick{
			At:       now,
			Message:  obs.head.Message,
			WorkerID: w.id,
			AlarmID:  obs.head.ID,
			GroupID:  obs.head.GroupID,
			Tag:      tag,
		})
	}

	return ticks
}
