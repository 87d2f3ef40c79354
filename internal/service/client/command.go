package client

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/oshokin/alarm-scheduler/internal/command"
	"github.com/oshokin/alarm-scheduler/internal/config"
	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
	"github.com/oshokin/alarm-scheduler/internal/logger"
	pb "github.com/oshokin/alarm-scheduler/internal/pb/v1"
	"github.com/oshokin/alarm-scheduler/internal/view"
)

// Options controls the alarm-ctl commands.
type Options struct {
	// Overrides holds flag and environment values layered over the file.
	Overrides *viper.Viper
	// Out receives command output; defaults to os.Stdout.
	Out io.Writer
	// ConfigPath specifies the path to settings YAML file. A missing file means defaults.
	ConfigPath string
}

// Session is a connected alarm-ctl invocation.
type Session struct {
	client   *Client
	out      io.Writer
	settings *config.Config
}

// Open loads the settings and connects to the scheduler.
func Open(ctx context.Context, opts *Options) (*Session, error) {
	settings, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.Overrides != nil {
		if err = config.Overlay(settings, opts.Overrides); err != nil {
			return nil, fmt.Errorf("apply overrides: %w", err)
		}
	}

	level, _ := logger.ParseLogLevel(settings.LogLevel)
	format, _ := logger.ParseFormat(settings.LogFormat)
	logger.Configure(level, format)

	ctx = logger.WithName(ctx, "alarm-ctl")

	actor, err := DetectActor()
	if err != nil {
		logger.WarnKV(ctx, "Failed to detect actor", "error", err)
	}

	client, err := Dial(ctx, settings.GRPCAddress, WithCallTimeout(settings.Timeout), WithActor(actor))
	if err != nil {
		return nil, err
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	return &Session{
		client:   client,
		out:      out,
		settings: settings,
	}, nil
}

// Client returns the underlying gRPC client.
func (s *Session) Client() *Client {
	return s.client
}

// Close releases the connection.
func (s *Session) Close() error {
	return s.client.Close()
}

// Start submits a new alarm.
func (s *Session) Start(ctx context.Context, req alarm.Request) error {
	created, err := s.client.Submit(ctx, req)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(s.out, "Started alarm %d in group %d, due %s\n",
		created.ID, created.GroupID, created.DueAt.Local().Format(time.DateTime))

	return nil
}

// Change modifies a pending alarm.
func (s *Session) Change(ctx context.Context, req alarm.Request) error {
	changed, err := s.client.Modify(ctx, req)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(s.out, "Changed alarm %d in group %d, due %s\n",
		changed.ID, changed.GroupID, changed.DueAt.Local().Format(time.DateTime))

	return nil
}

// Cancel removes a pending alarm.
func (s *Session) Cancel(ctx context.Context, alarmID int64) error {
	if err := s.client.Cancel(ctx, alarmID); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(s.out, "Cancelled alarm %d\n", alarmID)

	return nil
}

// List prints the pending alarms.
func (s *Session) List(ctx context.Context) error {
	alarms, err := s.client.List(ctx)
	if err != nil {
		return err
	}

	view.Alarms(s.out, alarms, time.Now())

	return nil
}

// Groups prints the active groups.
func (s *Session) Groups(ctx context.Context) error {
	groups, err := s.client.Groups(ctx)
	if err != nil {
		return err
	}

	rows := make([]view.GroupRow, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, view.GroupRow{
			GroupID:   g.GroupID,
			LiveCount: g.LiveCount,
			WorkerID:  g.WorkerID,
		})
	}

	view.Groups(s.out, rows)

	return nil
}

// Watch prints events as they arrive until ctx is cancelled.
func (s *Session) Watch(ctx context.Context, kinds []string) error {
	filter := make([]alarm.EventKind, 0, len(kinds))

	for _, k := range kinds {
		kind := alarm.EventKind(strings.TrimSpace(k))
		if !alarm.IsKnownKind(kind) {
			return fmt.Errorf("unknown event kind %q", k)
		}

		filter = append(filter, kind)
	}

	return s.client.Watch(ctx, filter, func(ev pb.Event) error {
		_, err := fmt.Fprintln(s.out, FormatEvent(ev))

		return err
	})
}

// Exec runs one line of the console grammar against the remote scheduler.
func (s *Session) Exec(ctx context.Context, line string) error {
	req, err := command.Parse(line, s.settings.MaxMessageLength)
	if err != nil {
		return err
	}

	switch req.Command {
	case alarm.CommandStart:
		return s.Start(ctx, req)
	case alarm.CommandChange:
		return s.Change(ctx, req)
	case alarm.CommandCancel:
		return s.Cancel(ctx, req.AlarmID)
	case alarm.CommandList:
		return s.List(ctx)
	default:
		return fmt.Errorf("%w: unsupported command %s", command.ErrBadCommand, req.Command)
	}
}

// FormatEvent renders a watch event as one line: time, kind and sorted fields.
func FormatEvent(ev pb.Event) string {
	var b strings.Builder

	b.WriteString(ev.OccurredAt.Local().Format(time.TimeOnly))
	b.WriteByte(' ')
	b.WriteString(string(ev.Kind))

	for _, key := range pb.SortedKeys(ev.Payload) {
		fmt.Fprintf(&b, " %s=%s", key, formatValue(ev.Payload[key]))
	}

	return b.String()
}

// formatValue prints whole numbers without an exponent.
func formatValue(v any) string {
	if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}

	return fmt.Sprint(v)
}
