package events

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"

	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
	"github.com/oshokin/alarm-scheduler/internal/logger"
)

// Sink consumes scheduler events. The scheduler calls Emit one event at a
// time, in the order of its state changes, and never with its lock held.
// Emit must not call back into the scheduler's request methods.
type Sink interface {
	Emit(ctx context.Context, e alarm.Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, e alarm.Event)

// Emit implements Sink.
func (f SinkFunc) Emit(ctx context.Context, e alarm.Event) {
	f(ctx, e)
}

// Discard drops every event.
//
//nolint:gochecknoglobals // Stateless sink shared by default.
var Discard Sink = SinkFunc(func(context.Context, alarm.Event) {})

// multi delivers each event to every sink in order.
type multi []Sink

// NewMulti returns a sink that delivers events to all non-nil sinks in order.
func NewMulti(sinks ...Sink) Sink {
	result := make(multi, 0, len(sinks))

	for _, s := range sinks {
		if s != nil {
			result = append(result, s)
		}
	}

	return result
}

// Emit implements Sink.
func (m multi) Emit(ctx context.Context, e alarm.Event) {
	for _, s := range m {
		s.Emit(ctx, e)
	}
}

// logSink writes events to the context logger.
type logSink struct{}

// NewLogSink returns a sink that logs each event with its payload as key-value pairs.
// Display ticks are logged at debug level, everything else at info level.
func NewLogSink() Sink {
	return logSink{}
}

// Emit implements Sink.
func (logSink) Emit(ctx context.Context, e alarm.Event) {
	fields := e.Fields()
	kvs := make([]any, 0, 2*len(fields)+2)
	kvs = append(kvs, "event", string(e.Kind()))

	for _, k := range slices.Sorted(maps.Keys(fields)) {
		kvs = append(kvs, k, fields[k])
	}

	if e.Kind() == alarm.KindDisplayTick {
		logger.DebugKV(ctx, alarm.Describe(e), kvs...)

		return
	}

	logger.InfoKV(ctx, alarm.Describe(e), kvs...)
}

// writerSink prints the console wording of each event.
type writerSink struct {
	w  io.Writer
	mu sync.Mutex
}

// NewWriterSink returns a sink that prints one line per event to w.
func NewWriterSink(w io.Writer) Sink {
	return &writerSink{w: w}
}

// Emit implements Sink.
func (s *writerSink) Emit(_ context.Context, e alarm.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = fmt.Fprintln(s.w, alarm.Describe(e))
}
