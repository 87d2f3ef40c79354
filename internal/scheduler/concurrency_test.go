package scheduler

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
)

// slowInserts delays AlarmInserted delivery so a racing expiry would overtake it.
type slowInserts struct {
	recorder
}

func (s *slowInserts) Emit(ctx context.Context, e alarm.Event) {
	if e.Kind() == alarm.KindAlarmInserted {
		time.Sleep(2 * time.Millisecond)
	}

	s.recorder.Emit(ctx, e)
}

// alarmIDOf returns the alarm an event is about, or -1.
func alarmIDOf(e alarm.Event) int64 {
	switch ev := e.(type) {
	case alarm.AlarmInserted:
		return ev.AlarmID
	case alarm.AlarmChanged:
		return ev.AlarmID
	case alarm.AlarmCancelled:
		return ev.AlarmID
	case alarm.AlarmExpired:
		return ev.AlarmID
	default:
		return -1
	}
}

// TestSchedulerEventsFollowMutationOrder checks a slow sink still sees each
// alarm inserted, then changed, then expired.
func TestSchedulerEventsFollowMutationOrder(t *testing.T) {
	t.Parallel()

	const count = 50

	sink := &slowInserts{}
	s := New(WithSink(sink))
	require.NoError(t, s.Start(t.Context()))

	ctx := t.Context()

	for id := range int64(count) {
		_, err := s.Submit(ctx, startRequest(id, id%4, 1, "slow"))
		require.NoError(t, err)

		_, err = s.Modify(ctx, changeRequest(id, id%4, 0, "now"))
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		return len(sink.expiredIDs()) == count
	}, 10*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Shutdown(context.Background()))

	sink.mu.Lock()
	defer sink.mu.Unlock()

	order := make(map[int64][]alarm.EventKind, count)

	for _, e := range sink.events {
		if id := alarmIDOf(e); id >= 0 {
			order[id] = append(order[id], e.Kind())
		}
	}

	want := []alarm.EventKind{alarm.KindAlarmInserted, alarm.KindAlarmChanged, alarm.KindAlarmExpired}

	for id := range int64(count) {
		require.Equal(t, want, order[id], "alarm %d", id)
	}
}

// TestSchedulerWorkerEventsBracketTicks checks every worker announces
// WorkerCreated first and WorkerTerminated last.
func TestSchedulerWorkerEventsBracketTicks(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		s, rec := startScheduler(t, WithDisplayInterval(time.Second))
		ctx := t.Context()

		for id := range int64(4) {
			_, err := s.Submit(ctx, startRequest(id, id%2, 3+id, "bracket"))
			require.NoError(t, err)
		}

		advance(10 * time.Second)
		shutdown(t, s)

		seen := make(map[uint64][]alarm.EventKind)

		rec.mu.Lock()
		defer rec.mu.Unlock()

		for _, e := range rec.events {
			switch ev := e.(type) {
			case alarm.WorkerCreated:
				seen[ev.WorkerID] = append(seen[ev.WorkerID], e.Kind())
			case alarm.DisplayTick:
				seen[ev.WorkerID] = append(seen[ev.WorkerID], e.Kind())
			case alarm.WorkerTerminated:
				seen[ev.WorkerID] = append(seen[ev.WorkerID], e.Kind())
			}
		}

		require.Len(t, seen, 2)

		for id, kinds := range seen {
			require.Equal(t, alarm.KindWorkerCreated, kinds[0], "worker %d", id)
			require.Equal(t, alarm.KindWorkerTerminated, kinds[len(kinds)-1], "worker %d", id)
		}
	})
}

// TestSchedulerConcurrentProducersKeepGroupAccounting runs several producers
// against the scheduler and checks the group counts after every request.
func TestSchedulerConcurrentProducersKeepGroupAccounting(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		s, rec := startScheduler(t, WithDisplayInterval(time.Second))
		ctx := t.Context()

		const (
			producers = 6
			requests  = 200
			ids       = 40
			groups    = 5
		)

		var wg sync.WaitGroup

		for p := range producers {
			wg.Go(func() {
				rng := rand.New(rand.NewPCG(uint64(p), 42))

				for range requests {
					id := rng.Int64N(ids)
					group := rng.Int64N(groups)
					seconds := rng.Int64N(4)

					switch rng.IntN(3) {
					case 0:
						_, _ = s.Submit(ctx, startRequest(id, group, seconds, "concurrent"))
					case 1:
						_, _ = s.Modify(ctx, changeRequest(id, group, seconds, "changed"))
					default:
						_ = s.Cancel(ctx, id)
					}

					if err := s.Verify(); err != nil {
						t.Errorf("producer %d: %v", p, err)

						return
					}

					if rng.IntN(10) == 0 {
						time.Sleep(time.Duration(rng.IntN(1500)) * time.Millisecond)
					}
				}
			})
		}

		wg.Wait()
		require.NoError(t, s.Verify())

		// Everything left expires within the longest delay; idle workers stop on their next tick.
		advance(5 * time.Second)
		require.Empty(t, s.List(ctx))
		require.Empty(t, s.Groups(ctx))
		require.NoError(t, s.Verify())

		shutdown(t, s)

		require.Len(t, rec.ofKind(alarm.KindWorkerTerminated), len(rec.ofKind(alarm.KindWorkerCreated)))
		require.NotEmpty(t, rec.ofKind(alarm.KindWorkerCreated))
	})
}

// TestSchedulerStopsAcceptingOnStartContextCancel checks requests are refused
// once the context given to Start is cancelled.
func TestSchedulerStopsAcceptingOnStartContextCancel(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		runCtx, cancel := context.WithCancel(t.Context())

		rec := &recorder{}
		s := New(WithSink(rec))
		require.NoError(t, s.Start(runCtx))

		_, err := s.Submit(t.Context(), startRequest(1, 1, 30, "before"))
		require.NoError(t, err)

		cancel()
		synctest.Wait()
		require.Equal(t, LoopStopped, s.LoopState())

		_, err = s.Submit(t.Context(), startRequest(2, 1, 1, "after"))
		require.ErrorIs(t, err, ErrNotRunning)

		_, err = s.Modify(t.Context(), changeRequest(1, 1, 1, "after"))
		require.ErrorIs(t, err, ErrNotRunning)
		require.ErrorIs(t, s.Cancel(t.Context(), 1), ErrNotRunning)

		require.NoError(t, s.Shutdown(context.Background()))
		require.Len(t, rec.ofKind(alarm.KindWorkerTerminated), 1)
	})
}
