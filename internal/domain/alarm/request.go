package alarm

import (
	"fmt"
	"math"
	"time"
	"unicode/utf8"
)

// Command identifies the kind of request sent by the command layer.
type Command uint8

const (
	// CommandStart creates a new alarm.
	CommandStart Command = iota + 1
	// CommandChange modifies a pending alarm.
	CommandChange
	// CommandCancel removes a pending alarm.
	CommandCancel
	// CommandList asks for the pending alarms.
	CommandList
)

// String returns the command name used by the line grammar.
func (c Command) String() string {
	switch c {
	case CommandStart:
		return "Start_Alarm"
	case CommandChange:
		return "Change_Alarm"
	case CommandCancel:
		return "Cancel_Alarm"
	case CommandList:
		return "View_Alarms"
	default:
		return "Unknown"
	}
}

// DefaultMaxMessageLength is the longest message accepted when no limit is configured.
const DefaultMaxMessageLength = 64

// MaxSeconds is the longest delay a time.Duration can hold, about 292 years.
const MaxSeconds = math.MaxInt64 / int64(time.Second)

// Request is a Start or Change request as produced by the command layer.
type Request struct {
	// Message is the alarm text.
	Message string
	// AlarmID identifies the alarm.
	AlarmID int64
	// GroupID is the target group.
	GroupID int64
	// Seconds is the delay from now until expiry.
	Seconds int64
	// Command is the request kind.
	Command Command
}

// Validate checks field ranges. maxMessage <= 0 falls back to DefaultMaxMessageLength.
func (r *Request) Validate(maxMessage int) error {
	if maxMessage <= 0 {
		maxMessage = DefaultMaxMessageLength
	}

	if r.AlarmID < 0 {
		return fmt.Errorf("%w: alarm id %d is negative", ErrInvalidField, r.AlarmID)
	}

	// Cancel and list only need the id.
	if r.Command == CommandCancel || r.Command == CommandList {
		return nil
	}

	if r.GroupID < 0 {
		return fmt.Errorf("%w: group id %d is negative", ErrInvalidField, r.GroupID)
	}

	if r.Seconds < 0 {
		return fmt.Errorf("%w: seconds %d is negative", ErrInvalidField, r.Seconds)
	}

	if r.Seconds > MaxSeconds {
		return fmt.Errorf("%w: seconds %d exceeds %d", ErrInvalidField, r.Seconds, MaxSeconds)
	}

	if r.Message == "" {
		return fmt.Errorf("%w: message is empty", ErrInvalidField)
	}

	if n := utf8.RuneCountInString(r.Message); n > maxMessage {
		return fmt.Errorf("%w: message has %d characters, limit is %d", ErrInvalidField, n, maxMessage)
	}

	return nil
}

// Delay returns the requested delay as a duration.
func (r *Request) Delay() time.Duration {
	return time.Duration(r.Seconds) * time.Second
}

// NewAlarm builds a fresh alarm due at now plus the requested delay.
func (r *Request) NewAlarm(now time.Time) Alarm {
	return Alarm{
		DueAt:   now.Add(r.Delay()),
		Message: r.Message,
		ID:      r.AlarmID,
		GroupID: r.GroupID,
		Seconds: r.Seconds,
		Tag:     TagFresh,
	}
}

// Fields returns the mutable fields of a Change request with the due time
// recomputed from now.
func (r *Request) Fields(now time.Time) Fields {
	return Fields{
		DueAt:   now.Add(r.Delay()),
		Message: r.Message,
		GroupID: r.GroupID,
		Seconds: r.Seconds,
	}
}
