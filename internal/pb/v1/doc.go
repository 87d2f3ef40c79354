// Package pb describes the alarm.v1.AlarmScheduler gRPC service.
//
// The service carries well-known protobuf types (structpb, emptypb) instead of
// generated messages, so the service descriptor, handlers and client stub are
// written by hand in the shape protoc-gen-go-grpc produces. convert.go maps
// the domain types to and from those messages.
package pb
