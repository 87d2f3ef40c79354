package command

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
)

// ErrBadCommand is returned for lines that do not match the grammar.
var ErrBadCommand = errors.New("bad command")

//nolint:gochecknoglobals // Compiled once, read-only.
var (
	alarmLine  = regexp.MustCompile(`^(Start_Alarm|Change_Alarm)\((\d+)\):\s+Group\((\d+)\)\s+(\d+)\s+(.+)$`)
	cancelLine = regexp.MustCompile(`^Cancel_Alarm\((\d+)\)$`)
)

// Parse turns one console line into a request. Ids, groups and seconds must
// be non-negative integers and the message must not exceed maxMessage
// characters.
func Parse(line string, maxMessage int) (alarm.Request, error) {
	line = strings.TrimSpace(line)

	switch {
	case line == alarm.CommandList.String():
		return alarm.Request{Command: alarm.CommandList}, nil
	case strings.HasPrefix(line, alarm.CommandCancel.String()):
		return parseCancel(line)
	default:
		return parseAlarm(line, maxMessage)
	}
}

func parseCancel(line string) (alarm.Request, error) {
	m := cancelLine.FindStringSubmatch(line)
	if m == nil {
		return alarm.Request{}, fmt.Errorf("%w: expected Cancel_Alarm(<id>)", ErrBadCommand)
	}

	id, err := parseInt(m[1], "alarm id")
	if err != nil {
		return alarm.Request{}, err
	}

	return alarm.Request{
		AlarmID: id,
		Command: alarm.CommandCancel,
	}, nil
}

func parseAlarm(line string, maxMessage int) (alarm.Request, error) {
	m := alarmLine.FindStringSubmatch(line)
	if m == nil {
		return alarm.Request{}, fmt.Errorf("%w: %q", ErrBadCommand, line)
	}

	req := alarm.Request{
		Message: strings.TrimSpace(m[5]),
		Command: alarm.CommandStart,
	}

	if m[1] == alarm.CommandChange.String() {
		req.Command = alarm.CommandChange
	}

	var err error

	if req.AlarmID, err = parseInt(m[2], "alarm id"); err != nil {
		return alarm.Request{}, err
	}

	if req.GroupID, err = parseInt(m[3], "group id"); err != nil {
		return alarm.Request{}, err
	}

	if req.Seconds, err = parseInt(m[4], "seconds"); err != nil {
		return alarm.Request{}, err
	}

	if err = req.Validate(maxMessage); err != nil {
		return alarm.Request{}, fmt.Errorf("%w: %w", ErrBadCommand, err)
	}

	return req, nil
}

func parseInt(s, name string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is out of range", ErrBadCommand, name, s)
	}

	return v, nil
}
