package pb

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
)

// ErrMalformed is returned when a message lacks a field or holds a value of the wrong type.
var ErrMalformed = errors.New("malformed message")

// Field names shared by every message.
const (
	FieldAlarmID    = "alarm_id"
	FieldGroupID    = "group_id"
	FieldSeconds    = "seconds"
	FieldMessage    = "message"
	FieldDueAt      = "due_at"
	FieldTag        = "tag"
	FieldLiveCount  = "live_count"
	FieldWorkerID   = "worker_id"
	FieldKind       = "kind"
	FieldKinds      = "kinds"
	FieldOccurredAt = "occurred_at"
	FieldPayload    = "payload"
)

// Group is the wire view of an active group.
type Group struct {
	GroupID   int64
	LiveCount int
	WorkerID  uint64
}

// Event is a decoded watch event.
type Event struct {
	// OccurredAt is the instant the scheduler produced the event.
	OccurredAt time.Time
	// Payload holds the event fields with numbers as float64 and times as RFC 3339 strings.
	Payload map[string]any
	// Kind names the event.
	Kind alarm.EventKind
}

// RequestToStruct encodes a Start or Change request.
func RequestToStruct(req alarm.Request) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldAlarmID: structpb.NewNumberValue(float64(req.AlarmID)),
		FieldGroupID: structpb.NewNumberValue(float64(req.GroupID)),
		FieldSeconds: structpb.NewNumberValue(float64(req.Seconds)),
		FieldMessage: structpb.NewStringValue(req.Message),
	}}
}

// RequestFromStruct decodes a Start or Change request. Range checks are left
// to alarm.Request.Validate.
func RequestFromStruct(s *structpb.Struct, cmd alarm.Command) (alarm.Request, error) {
	var (
		req = alarm.Request{Command: cmd}
		err error
	)

	if req.AlarmID, err = intField(s, FieldAlarmID); err != nil {
		return alarm.Request{}, err
	}

	if req.GroupID, err = intField(s, FieldGroupID); err != nil {
		return alarm.Request{}, err
	}

	if req.Seconds, err = intField(s, FieldSeconds); err != nil {
		return alarm.Request{}, err
	}

	if req.Message, err = stringField(s, FieldMessage); err != nil {
		return alarm.Request{}, err
	}

	return req, nil
}

// IDToStruct encodes a request addressing one alarm.
func IDToStruct(alarmID int64) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldAlarmID: structpb.NewNumberValue(float64(alarmID)),
	}}
}

// IDFromStruct decodes the alarm id of a request.
func IDFromStruct(s *structpb.Struct) (int64, error) {
	return intField(s, FieldAlarmID)
}

// AlarmToStruct encodes a pending alarm.
func AlarmToStruct(a alarm.Alarm) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldAlarmID: structpb.NewNumberValue(float64(a.ID)),
		FieldGroupID: structpb.NewNumberValue(float64(a.GroupID)),
		FieldSeconds: structpb.NewNumberValue(float64(a.Seconds)),
		FieldMessage: structpb.NewStringValue(a.Message),
		FieldDueAt:   structpb.NewStringValue(a.DueAt.UTC().Format(time.RFC3339Nano)),
		FieldTag:     structpb.NewStringValue(a.Tag.String()),
	}}
}

// AlarmFromStruct decodes a pending alarm.
func AlarmFromStruct(s *structpb.Struct) (alarm.Alarm, error) {
	req, err := RequestFromStruct(s, alarm.CommandStart)
	if err != nil {
		return alarm.Alarm{}, err
	}

	dueAt, err := timeField(s, FieldDueAt)
	if err != nil {
		return alarm.Alarm{}, err
	}

	tagName, err := stringField(s, FieldTag)
	if err != nil {
		return alarm.Alarm{}, err
	}

	tag, ok := alarm.ParseRevisionTag(tagName)
	if !ok {
		return alarm.Alarm{}, fmt.Errorf("%w: unknown tag %q", ErrMalformed, tagName)
	}

	return alarm.Alarm{
		DueAt:   dueAt,
		Message: req.Message,
		ID:      req.AlarmID,
		GroupID: req.GroupID,
		Seconds: req.Seconds,
		Tag:     tag,
	}, nil
}

// AlarmsToList encodes a list of alarms.
func AlarmsToList(alarms []alarm.Alarm) *structpb.ListValue {
	values := make([]*structpb.Value, 0, len(alarms))
	for _, a := range alarms {
		values = append(values, structpb.NewStructValue(AlarmToStruct(a)))
	}

	return &structpb.ListValue{Values: values}
}

// AlarmsFromList decodes a list of alarms.
func AlarmsFromList(l *structpb.ListValue) ([]alarm.Alarm, error) {
	result := make([]alarm.Alarm, 0, len(l.GetValues()))

	for i, v := range l.GetValues() {
		a, err := AlarmFromStruct(v.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("alarm #%d: %w", i, err)
		}

		result = append(result, a)
	}

	return result, nil
}

// GroupsToList encodes a list of groups.
func GroupsToList(groups []Group) *structpb.ListValue {
	values := make([]*structpb.Value, 0, len(groups))
	for _, g := range groups {
		values = append(values, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			FieldGroupID:   structpb.NewNumberValue(float64(g.GroupID)),
			FieldLiveCount: structpb.NewNumberValue(float64(g.LiveCount)),
			FieldWorkerID:  structpb.NewNumberValue(float64(g.WorkerID)),
		}}))
	}

	return &structpb.ListValue{Values: values}
}

// GroupsFromList decodes a list of groups.
func GroupsFromList(l *structpb.ListValue) ([]Group, error) {
	result := make([]Group, 0, len(l.GetValues()))

	for i, v := range l.GetValues() {
		s := v.GetStructValue()

		groupID, err := intField(s, FieldGroupID)
		if err != nil {
			return nil, fmt.Errorf("group #%d: %w", i, err)
		}

		liveCount, err := intField(s, FieldLiveCount)
		if err != nil {
			return nil, fmt.Errorf("group #%d: %w", i, err)
		}

		workerID, err := intField(s, FieldWorkerID)
		if err != nil {
			return nil, fmt.Errorf("group #%d: %w", i, err)
		}

		result = append(result, Group{
			GroupID:   groupID,
			LiveCount: int(liveCount),
			WorkerID:  uint64(workerID), //nolint:gosec // Worker ids are positive.
		})
	}

	return result, nil
}

// WatchRequest encodes a watch filter. No kinds means every kind.
func WatchRequest(kinds ...alarm.EventKind) *structpb.Struct {
	values := make([]*structpb.Value, 0, len(kinds))
	for _, k := range kinds {
		values = append(values, structpb.NewStringValue(string(k)))
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldKinds: structpb.NewListValue(&structpb.ListValue{Values: values}),
	}}
}

// KindsFromWatchRequest decodes a watch filter.
func KindsFromWatchRequest(s *structpb.Struct) ([]alarm.EventKind, error) {
	v, ok := s.GetFields()[FieldKinds]
	if !ok {
		return nil, nil
	}

	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("%w: %s must be a list", ErrMalformed, FieldKinds)
	}

	kinds := make([]alarm.EventKind, 0, len(list.GetValues()))

	for _, item := range list.GetValues() {
		kind := alarm.EventKind(item.GetStringValue())
		if !alarm.IsKnownKind(kind) {
			return nil, fmt.Errorf("%w: unknown event kind %q", ErrMalformed, item.GetStringValue())
		}

		kinds = append(kinds, kind)
	}

	return kinds, nil
}

// EventToStruct encodes a scheduler event with its payload.
func EventToStruct(e alarm.Event) (*structpb.Struct, error) {
	payload, err := FieldsToStruct(e.Fields())
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", e.Kind(), err)
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldKind:       structpb.NewStringValue(string(e.Kind())),
		FieldOccurredAt: structpb.NewStringValue(e.OccurredAt().UTC().Format(time.RFC3339Nano)),
		FieldPayload:    structpb.NewStructValue(payload),
	}}, nil
}

// EventFromStruct decodes a watch event.
func EventFromStruct(s *structpb.Struct) (Event, error) {
	kind, err := stringField(s, FieldKind)
	if err != nil {
		return Event{}, err
	}

	occurredAt, err := timeField(s, FieldOccurredAt)
	if err != nil {
		return Event{}, err
	}

	return Event{
		OccurredAt: occurredAt,
		Payload:    s.GetFields()[FieldPayload].GetStructValue().AsMap(),
		Kind:       alarm.EventKind(kind),
	}, nil
}

// FieldsToStruct converts an event payload into a Struct. Integers become
// numbers, times become RFC 3339 strings and fmt.Stringer values their text.
func FieldsToStruct(fields map[string]any) (*structpb.Struct, error) {
	normalized := make(map[string]any, len(fields))

	for k, v := range fields {
		switch val := v.(type) {
		case time.Time:
			normalized[k] = val.UTC().Format(time.RFC3339Nano)
		case time.Duration:
			normalized[k] = val.Seconds()
		case fmt.Stringer:
			normalized[k] = val.String()
		default:
			normalized[k] = v
		}
	}

	return structpb.NewStruct(normalized)
}

// SortedKeys returns the keys of a payload in lexical order.
func SortedKeys(payload map[string]any) []string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// maxExactInteger is the largest magnitude a float64 represents without gaps.
const maxExactInteger = 1 << 53

// intField reads a non-fractional number in the exactly representable range.
func intField(s *structpb.Struct, name string) (int64, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s is required", ErrMalformed, name)
	}

	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a number", ErrMalformed, name)
	}

	f := n.NumberValue
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrMalformed, name)
	}

	// Beyond 2^53 a float64 no longer holds every integer.
	if math.Abs(f) > maxExactInteger {
		return 0, fmt.Errorf("%w: %s exceeds %d", ErrMalformed, name, int64(maxExactInteger))
	}

	return int64(f), nil
}

func stringField(s *structpb.Struct, name string) (string, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return "", fmt.Errorf("%w: %s is required", ErrMalformed, name)
	}

	str, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrMalformed, name)
	}

	return str.StringValue, nil
}

func timeField(s *structpb.Struct, name string) (time.Time, error) {
	str, err := stringField(s, name)
	if err != nil {
		return time.Time{}, err
	}

	t, err := time.Parse(time.RFC3339Nano, str)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %w", ErrMalformed, name, err)
	}

	return t, nil
}
