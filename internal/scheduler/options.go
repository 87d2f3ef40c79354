package scheduler

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
	"github.com/oshokin/alarm-scheduler/internal/events"
)

// DefaultDisplayInterval is the period between two announcements of a display worker.
const DefaultDisplayInterval = 5 * time.Second

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(clk clock.Clock) Option {
	return func(s *Scheduler) {
		if clk != nil {
			s.clock = clk
		}
	}
}

// WithDisplayInterval sets the announcement period of display workers.
func WithDisplayInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.displayInterval = d
		}
	}
}

// WithMaxMessageLength sets the longest accepted message, in characters.
func WithMaxMessageLength(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxMessageLength = n
		}
	}
}

// WithSink sets the destination of scheduler events.
func WithSink(sink events.Sink) Option {
	return func(s *Scheduler) {
		if sink != nil {
			s.sink = sink
		}
	}
}

func defaultOptions(s *Scheduler) {
	s.clock = clock.New()
	s.displayInterval = DefaultDisplayInterval
	s.maxMessageLength = alarm.DefaultMaxMessageLength
	s.sink = events.Discard
}
