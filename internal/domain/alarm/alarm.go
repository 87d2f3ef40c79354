package alarm

import "time"

// RevisionTag records how an alarm was last touched and drives display wording.
type RevisionTag uint8

const (
	// TagFresh marks an alarm that was never changed since it was started.
	TagFresh RevisionTag = iota
	// TagMessageChanged marks an alarm whose message or delay was changed in place.
	TagMessageChanged
	// TagGroupChanged marks an alarm that was moved to another group.
	TagGroupChanged
)

// String returns a human-readable representation of the tag.
func (t RevisionTag) String() string {
	switch t {
	case TagFresh:
		return "fresh"
	case TagMessageChanged:
		return "message_changed"
	case TagGroupChanged:
		return "group_changed"
	default:
		return "unknown"
	}
}

// ParseRevisionTag is the inverse of RevisionTag.String.
func ParseRevisionTag(s string) (RevisionTag, bool) {
	for _, t := range []RevisionTag{TagFresh, TagMessageChanged, TagGroupChanged} {
		if t.String() == s {
			return t, true
		}
	}

	return 0, false
}

// Alarm is a single timed request waiting in the scheduler.
type Alarm struct {
	// DueAt is the absolute instant at which the alarm expires.
	DueAt time.Time
	// Message is the text announced by display workers and on expiry.
	Message string
	// ID is the caller-supplied unique identifier.
	ID int64
	// GroupID is the group whose display worker announces the alarm.
	GroupID int64
	// Seconds is the requested delay, kept for display only.
	Seconds int64
	// Tag records the last kind of change applied to the alarm.
	Tag RevisionTag
	// Removed is set on snapshots of alarms that left their group.
	Removed bool
}

// Fields holds the mutable part of an alarm applied by a Change request.
type Fields struct {
	// DueAt is the recomputed expiry instant.
	DueAt time.Time
	// Message replaces the alarm message.
	Message string
	// GroupID moves the alarm when it differs from the current group.
	GroupID int64
	// Seconds replaces the requested delay.
	Seconds int64
}

// Before reports whether a expires before b. Equal due times are ordered by
// the lower id so that the order is total.
func (a *Alarm) Before(b *Alarm) bool {
	if !a.DueAt.Equal(b.DueAt) {
		return a.DueAt.Before(b.DueAt)
	}

	return a.ID < b.ID
}

// Clone returns a copy of the alarm to avoid leaking internal references.
func (a *Alarm) Clone() *Alarm {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}
