package scheduler

import (
	"context"
	"time"

	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
	"github.com/oshokin/alarm-scheduler/internal/logger"
)

// LoopState is the state of the scheduler loop.
type LoopState int32

const (
	// LoopIdle means the store is empty and the loop waits for a wake signal.
	LoopIdle LoopState = iota
	// LoopWaiting means the loop waits for the earliest due time or a wake signal.
	LoopWaiting
	// LoopProcessing means the loop is removing an expired alarm.
	LoopProcessing
	// LoopStopped means the loop exited.
	LoopStopped
)

// String returns a human-readable representation of the state.
func (s LoopState) String() string {
	switch s {
	case LoopIdle:
		return "idle"
	case LoopWaiting:
		return "waiting"
	case LoopProcessing:
		return "processing"
	case LoopStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// loop is the single consumer of the store. It holds the mutex except while
// suspended and while publishing events.
func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ctx = logger.WithName(ctx, "loop")

	s.mu.Lock()
	defer func() {
		s.loopState = LoopStopped
		s.mu.Unlock()
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		head, ok := s.store.PeekMin()
		if !ok {
			s.loopState = LoopIdle

			if !s.suspend(ctx, nil) {
				return
			}

			continue
		}

		now := s.clock.Now()

		// The head may have changed while suspended: only an alarm whose due
		// time has been reached is processed, anything else re-arms the wait.
		if head.DueAt.After(now) {
			s.loopState = LoopWaiting
			s.waitingOn = head.DueAt
			s.awaitedID = head.ID

			logger.DebugKV(ctx, "Waiting for alarm", "alarm_id", head.ID, "due_at", head.DueAt)

			timer := s.clock.Timer(head.DueAt.Sub(now))
			resumed := s.suspend(ctx, timer.C)

			timer.Stop()

			if !resumed {
				return
			}

			continue
		}

		s.loopState = LoopProcessing
		s.process(ctx, now)
	}
}

// suspend releases the mutex until a wake signal, the deadline channel or ctx
// cancellation, then reacquires it. It returns false on cancellation.
func (s *Scheduler) suspend(ctx context.Context, deadline <-chan time.Time) bool {
	s.mu.Unlock()
	defer s.mu.Lock()

	select {
	case <-ctx.Done():
		return false
	case <-s.wake:
		return true
	case <-deadline:
		return true
	}
}

// process removes the earliest alarm, updates its group and publishes the
// expiry with the mutex released.
func (s *Scheduler) process(ctx context.Context, now time.Time) {
	expired, ok := s.store.ExtractMin()
	if !ok {
		return
	}

	s.enqueueLocked(ctx, alarm.AlarmExpired{
		At:      now,
		DueAt:   expired.DueAt,
		Message: expired.Message,
		AlarmID: expired.ID,
		GroupID: expired.GroupID,
		Seconds: expired.Seconds,
	})

	s.registry.OnAlarmRemoved(expired.GroupID)
	s.clearAwaited(expired.ID)

	s.mu.Unlock()
	defer s.mu.Lock()

	s.publish()
}

// signalLocked wakes the loop when a due time at or before due became
// visible. The caller holds the mutex, so the signal cannot be lost between
// the mutation and the loop going back to sleep.
func (s *Scheduler) signalLocked(due time.Time, touchedID int64) {
	switch s.loopState {
	case LoopIdle:
	case LoopWaiting:
		if !due.Before(s.waitingOn) && touchedID != s.awaitedID {
			return
		}
	default:
		// Processing re-reads the head before waiting again.
		return
	}

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// clearAwaited forgets the awaited alarm once it left the store.
func (s *Scheduler) clearAwaited(id int64) {
	if s.awaitedID == id {
		s.awaitedID = noAlarm
		s.waitingOn = time.Time{}
	}
}
