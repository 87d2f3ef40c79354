package alarm

import (
	"slices"
	"time"
)

// EventKind names an event in the scheduler taxonomy.
type EventKind string

const (
	// KindAlarmInserted is emitted when a Start request is accepted.
	KindAlarmInserted EventKind = "alarm_inserted"
	// KindAlarmChanged is emitted when a Change request is applied.
	KindAlarmChanged EventKind = "alarm_changed"
	// KindAlarmCancelled is emitted when a pending alarm is cancelled.
	KindAlarmCancelled EventKind = "alarm_cancelled"
	// KindAlarmExpired is emitted when the scheduler loop processes a due alarm.
	KindAlarmExpired EventKind = "alarm_expired"
	// KindDisplayTick is emitted by display workers on every announcement.
	KindDisplayTick EventKind = "display_tick"
	// KindWorkerCreated is emitted when a display worker starts.
	KindWorkerCreated EventKind = "worker_created"
	// KindWorkerTerminated is emitted when a display worker exits.
	KindWorkerTerminated EventKind = "worker_terminated"
)

// Kinds lists every event kind.
func Kinds() []EventKind {
	return []EventKind{
		KindAlarmInserted,
		KindAlarmChanged,
		KindAlarmCancelled,
		KindAlarmExpired,
		KindDisplayTick,
		KindWorkerCreated,
		KindWorkerTerminated,
	}
}

// IsKnownKind reports whether k is one of Kinds.
func IsKnownKind(k EventKind) bool {
	return slices.Contains(Kinds(), k)
}

// Event is a single entry of the scheduler event stream.
type Event interface {
	// Kind returns the event name.
	Kind() EventKind
	// OccurredAt returns the instant the event was produced.
	OccurredAt() time.Time
	// Fields returns the event payload as ordered-independent key/value pairs.
	Fields() map[string]any
}

// AlarmInserted reports a newly started alarm.
type AlarmInserted struct {
	At      time.Time
	DueAt   time.Time
	Message string
	AlarmID int64
	GroupID int64
}

// Kind implements Event.
func (AlarmInserted) Kind() EventKind { return KindAlarmInserted }

// OccurredAt implements Event.
func (e AlarmInserted) OccurredAt() time.Time { return e.At }

// Fields implements Event.
func (e AlarmInserted) Fields() map[string]any {
	return map[string]any{
		"alarm_id": e.AlarmID,
		"group_id": e.GroupID,
		"message":  e.Message,
		"due_at":   e.DueAt,
	}
}

// AlarmChanged reports an applied Change request.
type AlarmChanged struct {
	At         time.Time
	DueAt      time.Time
	Message    string
	AlarmID    int64
	OldGroupID int64
	NewGroupID int64
}

// Kind implements Event.
func (AlarmChanged) Kind() EventKind { return KindAlarmChanged }

// OccurredAt implements Event.
func (e AlarmChanged) OccurredAt() time.Time { return e.At }

// Fields implements Event.
func (e AlarmChanged) Fields() map[string]any {
	return map[string]any{
		"alarm_id":     e.AlarmID,
		"old_group_id": e.OldGroupID,
		"new_group_id": e.NewGroupID,
		"message":      e.Message,
		"due_at":       e.DueAt,
	}
}

// AlarmCancelled reports a pending alarm removed before it expired.
type AlarmCancelled struct {
	At      time.Time
	Message string
	AlarmID int64
	GroupID int64
}

// Kind implements Event.
func (AlarmCancelled) Kind() EventKind { return KindAlarmCancelled }

// OccurredAt implements Event.
func (e AlarmCancelled) OccurredAt() time.Time { return e.At }

// Fields implements Event.
func (e AlarmCancelled) Fields() map[string]any {
	return map[string]any{
		"alarm_id": e.AlarmID,
		"group_id": e.GroupID,
		"message":  e.Message,
	}
}

// AlarmExpired reports an alarm processed by the scheduler loop.
type AlarmExpired struct {
	At      time.Time
	DueAt   time.Time
	Message string
	AlarmID int64
	GroupID int64
	Seconds int64
}

// Kind implements Event.
func (AlarmExpired) Kind() EventKind { return KindAlarmExpired }

// OccurredAt implements Event.
func (e AlarmExpired) OccurredAt() time.Time { return e.At }

// Fields implements Event.
func (e AlarmExpired) Fields() map[string]any {
	return map[string]any{
		"alarm_id": e.AlarmID,
		"group_id": e.GroupID,
		"seconds":  e.Seconds,
		"message":  e.Message,
		"due_at":   e.DueAt,
	}
}

// Lag returns how late the alarm was processed.
func (e AlarmExpired) Lag() time.Duration {
	if e.At.Before(e.DueAt) {
		return 0
	}

	return e.At.Sub(e.DueAt)
}

// DisplayTick reports one periodic announcement of a display worker.
type DisplayTick struct {
	At       time.Time
	Message  string
	WorkerID uint64
	AlarmID  int64
	GroupID  int64
	Tag      RevisionTag
}

// Kind implements Event.
func (DisplayTick) Kind() EventKind { return KindDisplayTick }

// OccurredAt implements Event.
func (e DisplayTick) OccurredAt() time.Time { return e.At }

// Fields implements Event.
func (e DisplayTick) Fields() map[string]any {
	return map[string]any{
		"worker_id": e.WorkerID,
		"alarm_id":  e.AlarmID,
		"group_id":  e.GroupID,
		"message":   e.Message,
		"tag":       e.Tag.String(),
	}
}

// WorkerCreated reports a display worker bound to a group.
type WorkerCreated struct {
	At       time.Time
	WorkerID uint64
	GroupID  int64
}

// Kind implements Event.
func (WorkerCreated) Kind() EventKind { return KindWorkerCreated }

// OccurredAt implements Event.
func (e WorkerCreated) OccurredAt() time.Time { return e.At }

// Fields implements Event.
func (e WorkerCreated) Fields() map[string]any {
	return map[string]any{
		"worker_id": e.WorkerID,
		"group_id":  e.GroupID,
	}
}

// WorkerTerminated reports a display worker that exited.
type WorkerTerminated struct {
	At       time.Time
	WorkerID uint64
	GroupID  int64
}

// Kind implements Event.
func (WorkerTerminated) Kind() EventKind { return KindWorkerTerminated }

// OccurredAt implements Event.
func (e WorkerTerminated) OccurredAt() time.Time { return e.At }

// Fields implements Event.
func (e WorkerTerminated) Fields() map[string]any {
	return map[string]any{
		"worker_id": e.WorkerID,
		"group_id":  e.GroupID,
	}
}

// Describe renders an event as the operator-facing line printed by the console.
func Describe(e Event) string {
	return describe(e)
}
