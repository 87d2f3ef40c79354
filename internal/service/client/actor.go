package client

import (
	"context"
	"fmt"
	"os"
	"os/user"

	"google.golang.org/grpc/metadata"

	grpcapi "github.com/oshokin/alarm-scheduler/internal/api/grpc/alarm"
)

// Actor identifies the user issuing requests, for the server log.
type Actor struct {
	Hostname string
	Username string
}

// String renders the actor as username@hostname.
func (a Actor) String() string {
	return a.Username + "@" + a.Hostname
}

// DetectActor gathers host and user information for the audit trail.
func DetectActor() (Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return Actor{}, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return Actor{}, fmt.Errorf("current user: %w", err)
	}

	return Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}

// withActor attaches the actor to the outgoing metadata.
func withActor(ctx context.Context, actor Actor) context.Context {
	if actor == (Actor{}) {
		return ctx
	}

	return metadata.AppendToOutgoingContext(ctx, grpcapi.ActorMetadataKey, actor.String())
}
