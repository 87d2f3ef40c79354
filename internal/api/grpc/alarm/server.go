package alarm

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/alarm-scheduler/internal/domain/alarm"
	"github.com/oshokin/alarm-scheduler/internal/events"
	"github.com/oshokin/alarm-scheduler/internal/logger"
	pb "github.com/oshokin/alarm-scheduler/internal/pb/v1"
	"github.com/oshokin/alarm-scheduler/internal/scheduler"
)

// Service abstracts the scheduler operations the transport layer depends on.
type Service interface {
	Submit(ctx context.Context, req domain.Request) (domain.Alarm, error)
	Modify(ctx context.Context, req domain.Request) (domain.Alarm, error)
	Cancel(ctx context.Context, alarmID int64) error
	List(ctx context.Context) []domain.Alarm
	Groups(ctx context.Context) []scheduler.GroupStatus
}

// Subscriber hands out event subscriptions for Watch.
type Subscriber interface {
	Subscribe(kinds ...domain.EventKind) *events.Subscription
}

// Server implements the AlarmScheduler gRPC API.
type Server struct {
	pb.UnimplementedAlarmSchedulerServer

	// service provides the scheduler operations.
	service Service
	// subscriber feeds Watch streams; nil disables Watch.
	subscriber Subscriber
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service, subscriber Subscriber) *Server {
	return &Server{
		service:    service,
		subscriber: subscriber,
	}
}

// Submit starts a new alarm.
func (s *Server) Submit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := pb.RequestFromStruct(in, domain.CommandStart)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	created, err := s.service.Submit(ctx, req)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return pb.AlarmToStruct(created), nil
}

// Modify changes a pending alarm.
func (s *Server) Modify(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := pb.RequestFromStruct(in, domain.CommandChange)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	changed, err := s.service.Modify(ctx, req)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return pb.AlarmToStruct(changed), nil
}

// Cancel removes a pending alarm.
func (s *Server) Cancel(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	alarmID, err := pb.IDFromStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err = s.service.Cancel(ctx, alarmID); err != nil {
		return nil, toStatus(ctx, err)
	}

	return new(emptypb.Empty), nil
}

// List returns the pending alarms in due order.
func (s *Server) List(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	return pb.AlarmsToList(s.service.List(ctx)), nil
}

// Groups returns the active groups.
func (s *Server) Groups(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	groups := s.service.Groups(ctx)

	result := make([]pb.Group, 0, len(groups))
	for _, g := range groups {
		result = append(result, pb.Group{
			GroupID:   g.GroupID,
			LiveCount: g.LiveCount,
			WorkerID:  g.WorkerID,
		})
	}

	return pb.GroupsToList(result), nil
}

// Watch streams scheduler events until the client goes away.
func (s *Server) Watch(in *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	if s.subscriber == nil {
		return status.Error(codes.Unimplemented, "event stream is disabled")
	}

	kinds, err := pb.KindsFromWatchRequest(in)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	ctx := logger.WithName(stream.Context(), "watch")

	sub := s.subscriber.Subscribe(kinds...)
	defer sub.Close()

	logger.DebugKV(ctx, "Watch stream opened", "kinds", kinds)

	for {
		select {
		case <-ctx.Done():
			logger.DebugKV(ctx, "Watch stream closed", "dropped", sub.Dropped())

			return nil
		case e, ok := <-sub.C():
			if !ok {
				return status.Error(codes.Unavailable, "event stream closed")
			}

			msg, err := pb.EventToStruct(e)
			if err != nil {
				return status.Error(codes.Internal, err.Error())
			}

			if err = stream.Send(msg); err != nil {
				return err
			}
		}
	}
}

// toStatus maps scheduler errors to gRPC status codes.
func toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidField):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrDuplicateID):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, scheduler.ErrNotRunning):
		return status.Error(codes.Unavailable, err.Error())
	default:
		logger.ErrorKV(ctx, "Scheduler request failed", "error", err)

		return status.Error(codes.Internal, "unable to process request")
	}
}
