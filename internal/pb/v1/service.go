package pb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "alarm.v1.AlarmScheduler"

const (
	AlarmScheduler_Submit_FullMethodName = "/" + ServiceName + "/Submit" //nolint:revive,stylecheck // protoc naming.
	AlarmScheduler_Modify_FullMethodName = "/" + ServiceName + "/Modify" //nolint:revive,stylecheck // protoc naming.
	AlarmScheduler_Cancel_FullMethodName = "/" + ServiceName + "/Cancel" //nolint:revive,stylecheck // protoc naming.
	AlarmScheduler_List_FullMethodName   = "/" + ServiceName + "/List"   //nolint:revive,stylecheck // protoc naming.
	AlarmScheduler_Groups_FullMethodName = "/" + ServiceName + "/Groups" //nolint:revive,stylecheck // protoc naming.
	AlarmScheduler_Watch_FullMethodName  = "/" + ServiceName + "/Watch"  //nolint:revive,stylecheck // protoc naming.
)

// AlarmSchedulerServer is the server API of the alarm.v1.AlarmScheduler service.
type AlarmSchedulerServer interface {
	// Submit starts a new alarm. Request and response are alarm structs.
	Submit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	// Modify changes a pending alarm.
	Modify(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	// Cancel removes a pending alarm. The request holds alarm_id.
	Cancel(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error)
	// List returns the pending alarms in due order.
	List(ctx context.Context, in *emptypb.Empty) (*structpb.ListValue, error)
	// Groups returns the active groups.
	Groups(ctx context.Context, in *emptypb.Empty) (*structpb.ListValue, error)
	// Watch streams scheduler events. The request may hold a kinds filter.
	Watch(in *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error
}

// UnimplementedAlarmSchedulerServer must be embedded to have forward compatible implementations.
type UnimplementedAlarmSchedulerServer struct{}

func (UnimplementedAlarmSchedulerServer) Submit(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Submit not implemented")
}

func (UnimplementedAlarmSchedulerServer) Modify(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Modify not implemented")
}

func (UnimplementedAlarmSchedulerServer) Cancel(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Cancel not implemented")
}

func (UnimplementedAlarmSchedulerServer) List(context.Context, *emptypb.Empty) (*structpb.ListValue, error) {
	return nil, status.Error(codes.Unimplemented, "method List not implemented")
}

func (UnimplementedAlarmSchedulerServer) Groups(context.Context, *emptypb.Empty) (*structpb.ListValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Groups not implemented")
}

func (UnimplementedAlarmSchedulerServer) Watch(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error {
	return status.Error(codes.Unimplemented, "method Watch not implemented")
}

// RegisterAlarmSchedulerServer registers the implementation on a gRPC server.
func RegisterAlarmSchedulerServer(s grpc.ServiceRegistrar, srv AlarmSchedulerServer) {
	s.RegisterService(&AlarmScheduler_ServiceDesc, srv)
}

// AlarmScheduler_ServiceDesc is the grpc.ServiceDesc for the alarm.v1.AlarmScheduler service.
//
//nolint:gochecknoglobals,revive,stylecheck // Registered by reference, protoc naming.
var AlarmScheduler_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AlarmSchedulerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Submit", Handler: submitHandler},
		{MethodName: "Modify", Handler: modifyHandler},
		{MethodName: "Cancel", Handler: cancelHandler},
		{MethodName: "List", Handler: listHandler},
		{MethodName: "Groups", Handler: groupsHandler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "alarm/v1/alarm_scheduler.proto",
}

// unary adapts a typed method to the grpc.MethodDesc handler signature.
func unary[Req any, Res any](
	fullMethod string,
	call func(srv AlarmSchedulerServer, ctx context.Context, in *Req) (*Res, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}

		server, _ := srv.(AlarmSchedulerServer)

		if interceptor == nil {
			return call(server, ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			typed, _ := req.(*Req)

			return call(server, ctx, typed)
		}

		return interceptor(ctx, in, info, handler)
	}
}

//nolint:gochecknoglobals // Method handlers referenced by the service descriptor.
var (
	submitHandler = unary(AlarmScheduler_Submit_FullMethodName,
		func(srv AlarmSchedulerServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.Submit(ctx, in)
		})
	modifyHandler = unary(AlarmScheduler_Modify_FullMethodName,
		func(srv AlarmSchedulerServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.Modify(ctx, in)
		})
	cancelHandler = unary(AlarmScheduler_Cancel_FullMethodName,
		func(srv AlarmSchedulerServer, ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
			return srv.Cancel(ctx, in)
		})
	listHandler = unary(AlarmScheduler_List_FullMethodName,
		func(srv AlarmSchedulerServer, ctx context.Context, in *emptypb.Empty) (*structpb.ListValue, error) {
			return srv.List(ctx, in)
		})
	groupsHandler = unary(AlarmScheduler_Groups_FullMethodName,
		func(srv AlarmSchedulerServer, ctx context.Context, in *emptypb.Empty) (*structpb.ListValue, error) {
			return srv.Groups(ctx, in)
		})
)

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	server, _ := srv.(AlarmSchedulerServer)

	return server.Watch(in, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// AlarmSchedulerClient is the client API of the alarm.v1.AlarmScheduler service.
type AlarmSchedulerClient interface {
	Submit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Modify(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Cancel(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	List(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error)
	Groups(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error)
	Watch(
		ctx context.Context,
		in *structpb.Struct,
		opts ...grpc.CallOption,
	) (grpc.ServerStreamingClient[structpb.Struct], error)
}

type alarmSchedulerClient struct {
	cc grpc.ClientConnInterface
}

// NewAlarmSchedulerClient creates a client stub on top of a connection.
func NewAlarmSchedulerClient(cc grpc.ClientConnInterface) AlarmSchedulerClient {
	return &alarmSchedulerClient{cc: cc}
}

func (c *alarmSchedulerClient) Submit(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, AlarmScheduler_Submit_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *alarmSchedulerClient) Modify(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, AlarmScheduler_Modify_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *alarmSchedulerClient) Cancel(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, AlarmScheduler_Cancel_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *alarmSchedulerClient) List(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, AlarmScheduler_List_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *alarmSchedulerClient) Groups(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, AlarmScheduler_Groups_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *alarmSchedulerClient) Watch(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &AlarmScheduler_ServiceDesc.Streams[0], AlarmScheduler_Watch_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}

	x := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}

	if err = x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}

	if err = x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}

	return x, nil
}
