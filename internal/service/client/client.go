package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/oshokin/alarm-scheduler/internal/config"
	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
	pb "github.com/oshokin/alarm-scheduler/internal/pb/v1"
)

// Client wraps the AlarmScheduler gRPC client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the scheduler.
	conn *grpc.ClientConn
	// api is the AlarmScheduler client stub.
	api pb.AlarmSchedulerClient
	// actor is sent with every call.
	actor Actor

	// callTimeout is the default timeout for individual unary calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for unary calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor identifies the caller to the server.
func WithActor(actor Actor) Option {
	return func(c *Client) {
		c.actor = actor
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial establishes a gRPC connection to the scheduler.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial alarm scheduler: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         pb.NewAlarmSchedulerClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// Submit starts an alarm.
func (c *Client) Submit(ctx context.Context, req alarm.Request) (alarm.Alarm, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.Submit(callCtx, pb.RequestToStruct(req))
	if err != nil {
		return alarm.Alarm{}, fmt.Errorf("submit alarm %d: %w", req.AlarmID, err)
	}

	return pb.AlarmFromStruct(resp)
}

// Modify changes a pending alarm.
func (c *Client) Modify(ctx context.Context, req alarm.Request) (alarm.Alarm, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.Modify(callCtx, pb.RequestToStruct(req))
	if err != nil {
		return alarm.Alarm{}, fmt.Errorf("modify alarm %d: %w", req.AlarmID, err)
	}

	return pb.AlarmFromStruct(resp)
}

// Cancel removes a pending alarm.
func (c *Client) Cancel(ctx context.Context, alarmID int64) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if _, err := c.api.Cancel(callCtx, pb.IDToStruct(alarmID)); err != nil {
		return fmt.Errorf("cancel alarm %d: %w", alarmID, err)
	}

	return nil
}

// List returns the pending alarms in due order.
func (c *Client) List(ctx context.Context) ([]alarm.Alarm, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.List(callCtx, new(emptypb.Empty))
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}

	return pb.AlarmsFromList(resp)
}

// Groups returns the active groups.
func (c *Client) Groups(ctx context.Context) ([]pb.Group, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.Groups(callCtx, new(emptypb.Empty))
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	return pb.GroupsFromList(resp)
}

// Watch calls fn for every streamed event until ctx is cancelled, the server
// ends the stream or fn fails. The call timeout does not apply.
func (c *Client) Watch(ctx context.Context, kinds []alarm.EventKind, fn func(pb.Event) error) error {
	stream, err := c.api.Watch(withActor(ctx, c.actor), pb.WatchRequest(kinds...))
	if err != nil {
		return fmt.Errorf("watch events: %w", err)
	}

	for {
		msg, err := stream.Recv()

		switch {
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			if ctx.Err() != nil {
				return nil //nolint:nilerr // Cancellation ends the watch.
			}

			return fmt.Errorf("receive event: %w", err)
		}

		ev, err := pb.EventFromStruct(msg)
		if err != nil {
			return fmt.Errorf("decode event: %w", err)
		}

		if err = fn(ev); err != nil {
			return err
		}
	}
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline. The actor is
// attached to the outgoing metadata.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = withActor(ctx, c.actor)

	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
