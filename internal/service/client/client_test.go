package client

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	grpcapi "github.com/oshokin/alarm-scheduler/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-scheduler/internal/command"
	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
	"github.com/oshokin/alarm-scheduler/internal/events"
	pb "github.com/oshokin/alarm-scheduler/internal/pb/v1"
	"github.com/oshokin/alarm-scheduler/internal/scheduler"
)

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.ErrorIs(t, err, errAddressRequired)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
		actor:       Actor{Hostname: "box", Username: "oleg"},
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	_, ok := ctx.Deadline()
	require.False(t, ok)

	md, ok := metadata.FromOutgoingContext(ctx)
	require.True(t, ok)
	require.Equal(t, []string{"oleg@box"}, md.Get(grpcapi.ActorMetadataKey))

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

func TestWithActor_EmptyActorAddsNothing(t *testing.T) {
	t.Parallel()

	ctx := withActor(context.Background(), Actor{})

	_, ok := metadata.FromOutgoingContext(ctx)
	require.False(t, ok)
}

func TestFormatEvent(t *testing.T) {
	t.Parallel()

	ev := pb.Event{
		OccurredAt: time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local),
		Kind:       alarm.KindAlarmInserted,
		Payload: map[string]any{
			"message":  "wake",
			"alarm_id": float64(7),
			"group_id": float64(1000000),
		},
	}

	require.Equal(t, "10:00:00 alarm_inserted alarm_id=7 group_id=1000000 message=wake", FormatEvent(ev))
}

// startServer runs a real scheduler behind a gRPC listener on a free port.
func startServer(t *testing.T) (string, *scheduler.Scheduler) {
	t.Helper()

	broker := events.NewBroker(events.DefaultSubscriptionBuffer)
	sched := scheduler.New(
		scheduler.WithSink(broker),
		scheduler.WithDisplayInterval(time.Hour),
	)
	require.NoError(t, sched.Start(context.Background()))

	lc := net.ListenConfig{}
	listener, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer(grpc.UnaryInterceptor(grpcapi.LoggingInterceptor))
	pb.RegisterAlarmSchedulerServer(srv, grpcapi.NewServer(sched, broker))

	go func() { _ = srv.Serve(listener) }()

	t.Cleanup(func() {
		srv.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		require.NoError(t, sched.Shutdown(ctx))
	})

	return listener.Addr().String(), sched
}

func openSession(t *testing.T, address string, out *bytes.Buffer) *Session {
	t.Helper()

	overrides := viper.New()
	overrides.Set("grpc_addr", address)

	session, err := Open(context.Background(), &Options{
		Overrides:  overrides,
		Out:        out,
		ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"),
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = session.Close() })

	return session
}

func TestSession_Roundtrip(t *testing.T) {
	t.Parallel()

	address, sched := startServer(t)

	var out bytes.Buffer

	session := openSession(t, address, &out)
	ctx := context.Background()

	require.NoError(t, session.Start(ctx, alarm.Request{
		Command: alarm.CommandStart, AlarmID: 1, GroupID: 2, Seconds: 600, Message: "tea",
	}))
	require.Contains(t, out.String(), "Started alarm 1 in group 2")

	require.NoError(t, session.Exec(ctx, "Start_Alarm(2): Group(2) 900 coffee"))
	require.NoError(t, session.Exec(ctx, "Change_Alarm(2): Group(3) 300 coffee now"))
	require.Contains(t, out.String(), "Changed alarm 2 in group 3")

	out.Reset()
	require.NoError(t, session.List(ctx))
	require.Contains(t, out.String(), "tea")
	require.Contains(t, out.String(), "coffee now")

	out.Reset()
	require.NoError(t, session.Groups(ctx))
	require.Contains(t, out.String(), "2")
	require.Contains(t, out.String(), "3")

	require.NoError(t, session.Cancel(ctx, 1))
	require.Len(t, sched.List(ctx), 1)

	err := session.Cancel(ctx, 1)
	require.Equal(t, codes.NotFound, status.Code(err))

	err = session.Start(ctx, alarm.Request{
		Command: alarm.CommandStart, AlarmID: 2, GroupID: 2, Seconds: 1, Message: "dup",
	})
	require.Equal(t, codes.AlreadyExists, status.Code(err))

	require.ErrorIs(t, session.Exec(ctx, "Start_Alarm(x)"), command.ErrBadCommand)
}

func TestSession_Watch(t *testing.T) {
	t.Parallel()

	address, sched := startServer(t)

	var out bytes.Buffer

	session := openSession(t, address, &out)

	require.Error(t, session.Watch(context.Background(), []string{"bogus"}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan pb.Event, 1)
	done := make(chan error, 1)

	go func() {
		done <- session.client.Watch(ctx, []alarm.EventKind{alarm.KindAlarmInserted}, func(ev pb.Event) error {
			select {
			case received <- ev:
			default:
			}

			cancel()

			return nil
		})
	}()

	// The stream may not be subscribed yet; keep inserting until one arrives.
	var (
		id  int64
		got pb.Event
	)

	require.Eventually(t, func() bool {
		id++
		if _, err := sched.Submit(context.Background(), alarm.Request{
			Command: alarm.CommandStart, AlarmID: id, GroupID: 1, Seconds: 600, Message: "hello",
		}); err != nil {
			return false
		}

		select {
		case got = <-received:
			return true
		default:
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)

	require.Equal(t, alarm.KindAlarmInserted, got.Kind)
	require.Equal(t, "hello", got.Payload["message"])

	require.NoError(t, <-done)
}
