package alarm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func TestActorFrom(t *testing.T) {
	t.Parallel()

	require.Equal(t, "unknown", actorFrom(context.Background()))

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(ActorMetadataKey, "oleg@box"))
	require.Equal(t, "oleg@box", actorFrom(ctx))
}

func TestLoggingInterceptor_PassesThrough(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	info := &grpc.UnaryServerInfo{FullMethod: "/alarm.v1.AlarmScheduler/Submit"}

	resp, err := LoggingInterceptor(context.Background(), "req", info, func(_ context.Context, req any) (any, error) {
		return req.(string) + "-ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "req-ok", resp)

	_, err = LoggingInterceptor(context.Background(), "req", info, func(context.Context, any) (any, error) {
		return nil, errBoom
	})
	require.ErrorIs(t, err, errBoom)
}
