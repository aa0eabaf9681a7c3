package repositories

import (
	"context"

	"github.com/satriahrh/assistbridge/server/domain/entities"
)

// AssistantTransport opens duplex conversations with the assistant service
type AssistantTransport interface {
	// Open sends the request as the only outbound message of a new stream and
	// starts delivering response events. It must return promptly once ctx is
	// canceled.
	Open(ctx context.Context, accessToken string, req entities.AssistRequest) (AssistStream, error)
}

// AssistStream is one open conversation with the assistant
type AssistStream interface {
	// Events delivers response events in receipt order. The last event is
	// StreamEnd or StreamError, after which the channel is closed.
	Events() <-chan entities.ResponseEvent
	// Close aborts the underlying RPC. It is safe to call more than once.
	Close() error
}

// Registrar registers the device model and instance used by the assistant
type Registrar interface {
	Register(ctx context.Context, accessToken string) error
}

// Transcoder turns captured raw PCM into the format the voice platform plays
type Transcoder interface {
	Transcode(ctx context.Context, pcmPath string) (entities.EncodedAudio, error)
}
