package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
	"github.com/oshokin/alarm-scheduler/internal/events"
	"github.com/oshokin/alarm-scheduler/internal/logger"
)

// noAlarm marks the absence of an awaited alarm; alarm ids are non-negative.
const noAlarm int64 = -1

var (
	// ErrNotRunning is returned by requests made before Start or after Shutdown.
	ErrNotRunning = errors.New("scheduler is not running")
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("scheduler already started")
)

// Scheduler is the concurrent alarm queue: the Request API used by the
// command layer, the loop processing expirations and the display workers.
type Scheduler struct {
	clock clock.Clock
	sink  events.Sink

	store    *Store
	registry *Registry

	// wake carries at most one pending signal from producers to the loop.
	wake chan struct{}

	// runCtx is the parent context of the loop and the workers.
	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// waitingOn is the due time the loop is suspended on while LoopWaiting.
	waitingOn time.Time

	displayInterval  time.Duration
	maxMessageLength int

	// awaitedID is the alarm the loop is suspended on, or noAlarm.
	awaitedID int64
	// nextWorkerID numbers display workers.
	nextWorkerID uint64

	// outbox holds events in lock order until they are published. Guarded by mu.
	outbox []queuedEvent

	// publishMu serializes delivery to the sink. It is taken before mu, never
	// while mu is held.
	publishMu sync.Mutex

	// mu guards the store, the registry, worker notices and the loop fields.
	mu        sync.Mutex
	loopState LoopState
	running   bool
	closed    bool
}

// New creates a scheduler. Call Start before submitting requests.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		store:     NewStore(),
		wake:      make(chan struct{}, 1),
		awaitedID: noAlarm,
	}

	defaultOptions(s)

	for _, opt := range opts {
		opt(s)
	}

	s.registry = NewRegistry(s.spawnWorker)

	return s
}

// Start launches the loop. The loop and the workers stop when ctx is
// cancelled or Shutdown is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrNotRunning
	}

	if s.running {
		return ErrAlreadyStarted
	}

	s.runCtx, s.cancel = context.WithCancel(logger.WithName(ctx, "scheduler"))
	s.running = true

	s.wg.Add(1)

	go s.loop(s.runCtx)

	logger.InfoKV(s.runCtx, "Scheduler started", "display_interval", s.displayInterval.String())

	return nil
}

// Shutdown stops accepting requests, signals the loop and every worker and
// waits for them to exit or for ctx to expire.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()

	if !s.running {
		s.closed = true
		s.mu.Unlock()

		return nil
	}

	s.running = false
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	cancel()

	done := make(chan struct{})

	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info(ctx, "Scheduler stopped")

		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for scheduler goroutines: %w", ctx.Err())
	}
}

// Submit creates an alarm due at now plus the requested delay.
// It fails with alarm.ErrDuplicateID when the id is pending.
func (s *Scheduler) Submit(ctx context.Context, req alarm.Request) (alarm.Alarm, error) {
	if err := req.Validate(s.maxMessageLength); err != nil {
		return alarm.Alarm{}, fmt.Errorf("submit alarm %d: %w", req.AlarmID, err)
	}

	s.mu.Lock()

	if !s.acceptingLocked() {
		s.mu.Unlock()

		return alarm.Alarm{}, ErrNotRunning
	}

	created := req.NewAlarm(s.clock.Now())

	if err := s.store.Insert(created); err != nil {
		s.mu.Unlock()

		return alarm.Alarm{}, err
	}

	s.enqueueLocked(ctx, alarm.AlarmInserted{
		At:      s.clock.Now(),
		DueAt:   created.DueAt,
		Message: created.Message,
		AlarmID: created.ID,
		GroupID: created.GroupID,
	})

	s.registry.OnAlarmAdded(created.GroupID)
	s.signalLocked(created.DueAt, created.ID)
	s.mu.Unlock()

	s.publish()

	return created, nil
}

// Modify replaces the group, delay and message of a pending alarm and
// recomputes its due time. It fails with alarm.ErrNotFound when the id is
// not pending.
func (s *Scheduler) Modify(ctx context.Context, req alarm.Request) (alarm.Alarm, error) {
	if err := req.Validate(s.maxMessageLength); err != nil {
		return alarm.Alarm{}, fmt.Errorf("modify alarm %d: %w", req.AlarmID, err)
	}

	s.mu.Lock()

	if !s.acceptingLocked() {
		s.mu.Unlock()

		return alarm.Alarm{}, ErrNotRunning
	}

	before, ok := s.store.Find(req.AlarmID)
	if !ok {
		s.mu.Unlock()

		return alarm.Alarm{}, fmt.Errorf("modify alarm %d: %w", req.AlarmID, alarm.ErrNotFound)
	}

	oldGroup, newGroup, err := s.store.Update(req.AlarmID, req.Fields(s.clock.Now()))
	if err != nil {
		s.mu.Unlock()

		return alarm.Alarm{}, err
	}

	changed, _ := s.store.Find(req.AlarmID)

	s.enqueueLocked(ctx, alarm.AlarmChanged{
		At:         s.clock.Now(),
		DueAt:      changed.DueAt,
		Message:    changed.Message,
		AlarmID:    changed.ID,
		OldGroupID: oldGroup,
		NewGroupID: newGroup,
	})

	if oldGroup != newGroup {
		s.moveLocked(before, newGroup)
	}

	s.signalLocked(changed.DueAt, changed.ID)
	s.mu.Unlock()

	s.publish()

	return changed, nil
}

// Cancel removes a pending alarm. It fails with alarm.ErrNotFound when the id
// is not pending, so a second cancel of the same id is rejected.
func (s *Scheduler) Cancel(ctx context.Context, alarmID int64) error {
	s.mu.Lock()

	if !s.acceptingLocked() {
		s.mu.Unlock()

		return ErrNotRunning
	}

	removed, ok := s.store.Remove(alarmID)
	if !ok {
		s.mu.Unlock()

		return fmt.Errorf("cancel alarm %d: %w", alarmID, alarm.ErrNotFound)
	}

	s.enqueueLocked(ctx, alarm.AlarmCancelled{
		At:      s.clock.Now(),
		Message: removed.Message,
		AlarmID: removed.ID,
		GroupID: removed.GroupID,
	})

	s.registry.OnAlarmRemoved(removed.GroupID)
	s.signalLocked(removed.DueAt, removed.ID)
	s.clearAwaited(removed.ID)
	s.mu.Unlock()

	s.publish()

	return nil
}

// Get returns a copy of a pending alarm.
func (s *Scheduler) Get(_ context.Context, alarmID int64) (alarm.Alarm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.store.Find(alarmID)
	if !ok {
		return alarm.Alarm{}, fmt.Errorf("get alarm %d: %w", alarmID, alarm.ErrNotFound)
	}

	return a, nil
}

// List returns copies of the pending alarms in due order.
func (s *Scheduler) List(context.Context) []alarm.Alarm {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.Snapshot()
}

// Groups returns the status of every active group.
func (s *Scheduler) Groups(context.Context) []GroupStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.registry.Groups()
}

// FindWorker returns the display worker bound to the group.
func (s *Scheduler) FindWorker(groupID int64) (WorkerInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.registry.FindWorker(groupID)
	if !ok {
		return WorkerInfo{}, false
	}

	return w.Info(), true
}

// LoopState returns the current state of the loop.
func (s *Scheduler) LoopState() LoopState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loopState
}

// Verify checks that the store is consistent and that every group count
// matches the store. It is meant for tests and diagnostics.
func (s *Scheduler) Verify() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.verify(); err != nil {
		return err
	}

	for _, g := range s.registry.Groups() {
		if stored := s.store.GroupLen(g.GroupID); stored != g.LiveCount {
			return fmt.Errorf("group %d: live count %d, store holds %d", g.GroupID, g.LiveCount, stored)
		}
	}

	for _, a := range s.store.Snapshot() {
		if _, ok := s.registry.FindWorker(a.GroupID); !ok {
			return fmt.Errorf("alarm %d: group %d has no worker", a.ID, a.GroupID)
		}
	}

	return nil
}

// moveLocked reconciles group counts after an alarm left oldAlarm.GroupID for
// newGroup. The old worker gets a moved-out notice before the count drops, so
// it announces the move even when it is about to stop.
func (s *Scheduler) moveLocked(oldAlarm alarm.Alarm, newGroup int64) {
	if w, ok := s.registry.FindWorker(oldAlarm.GroupID); ok {
		notice := oldAlarm
		notice.GroupID = newGroup
		notice.Tag = alarm.TagGroupChanged
		notice.Removed = true

		w.addNotice(notice)
	}

	s.registry.OnAlarmRemoved(oldAlarm.GroupID)
	s.registry.OnAlarmAdded(newGroup)
}

// spawnWorker creates and starts the display worker of a group.
// It runs under the mutex, from Registry.OnAlarmAdded, and queues
// WorkerCreated for the caller to publish.
func (s *Scheduler) spawnWorker(groupID int64) *Worker {
	s.nextWorkerID++

	w := newWorker(s, s.clock, s.nextWorkerID, groupID, s.displayInterval)
	ctx := logger.WithKV(s.runCtx, "worker_id", w.id, "group_id", groupID)

	s.enqueueLocked(ctx, alarm.WorkerCreated{
		At:       s.clock.Now(),
		WorkerID: w.id,
		GroupID:  groupID,
	})

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		w.run(ctx)
	}()

	return w
}

// announce implements workerHost.
func (s *Scheduler) announce(ctx context.Context, w *Worker) bool {
	s.mu.Lock()

	obs := observation{
		notices:  w.notices,
		stopping: w.stopRequested,
	}

	w.notices = nil

	if obs.stopping {
		w.state.Store(int32(WorkerStopping))
	} else {
		obs.head, obs.hasHead = s.store.GroupHead(w.groupID)
	}

	s.enqueueLocked(ctx, w.announcements(obs, s.clock.Now())...)
	s.mu.Unlock()

	s.publish()

	return !obs.stopping
}

// retire implements workerHost.
func (s *Scheduler) retire(ctx context.Context, w *Worker) {
	s.mu.Lock()

	w.state.Store(int32(WorkerStopped))

	s.enqueueLocked(ctx, alarm.WorkerTerminated{
		At:       s.clock.Now(),
		WorkerID: w.id,
		GroupID:  w.groupID,
	})
	s.mu.Unlock()

	s.publish()
}

// acceptingLocked reports whether requests are served. It is false before
// Start, after Shutdown and once the Start context is cancelled.
func (s *Scheduler) acceptingLocked() bool {
	return s.running && s.runCtx.Err() == nil
}

// queuedEvent is an event waiting in the outbox.
type queuedEvent struct {
	ctx   context.Context
	event alarm.Event
}

// enqueueLocked appends events to the outbox. The caller holds the mutex, so
// the outbox order is the order of the mutations.
func (s *Scheduler) enqueueLocked(ctx context.Context, evs ...alarm.Event) {
	for _, ev := range evs {
		s.outbox = append(s.outbox, queuedEvent{ctx: ctx, event: ev})
	}
}

// publish delivers the outbox to the sink in order. Events queued by the
// caller are delivered when it returns: either in this batch or by an earlier
// publisher that took them before releasing publishMu.
// It must not be called with the mutex held.
func (s *Scheduler) publish() {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	batch := s.outbox
	s.outbox = nil
	s.mu.Unlock()

	for _, q := range batch {
		s.sink.Emit(q.ctx, q.event)
	}
}
