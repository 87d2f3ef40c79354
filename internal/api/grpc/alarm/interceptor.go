package alarm

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/oshokin/alarm-scheduler/internal/logger"
)

// ActorMetadataKey is the incoming metadata key naming the caller.
const ActorMetadataKey = "x-alarm-actor"

// LoggingInterceptor logs every unary call with its caller, outcome and duration.
func LoggingInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	started := time.Now()

	ctx = logger.WithKV(ctx, "method", info.FullMethod, "actor", actorFrom(ctx))

	resp, err := handler(ctx, req)

	logger.DebugKV(ctx, "Handled call",
		"code", status.Code(err).String(),
		"duration", time.Since(started))

	return resp, err
}

// actorFrom returns the caller identity, or "unknown".
func actorFrom(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "unknown"
	}

	if values := md.Get(ActorMetadataKey); len(values) > 0 && values[0] != "" {
		return values[0]
	}

	return "unknown"
}
