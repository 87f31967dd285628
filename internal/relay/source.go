// Package relay supplies raw feed frames from the upstream relay.
//
// Two transports are supported: a WebSocket subscription straight to a relay
// endpoint, and a Kafka consumer group for deployments where the firehose is
// mirrored into a topic. Both deliver opaque compressed frames; decoding
// happens downstream in the workers.
package relay

import (
	"context"
	"time"
)

// Frame is one opaque byte frame plus its local receive time.
type Frame struct {
	Data       []byte
	ReceivedAt time.Time
}

// Source is a feed transport.
type Source interface {
	// Start begins delivering frames.
	Start(ctx context.Context) error

	// Frames returns the frame channel. It closes after Stop.
	Frames() <-chan Frame

	// Stop shuts the transport down.
	Stop(ctx context.Context) error
}
