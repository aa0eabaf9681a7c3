package repositories

import (
	"context"

	"github.com/satriahrh/assistbridge/server/domain/entities"
)

// ContextRepository persists conversation contexts between turns
type ContextRepository interface {
	// Load returns the stored context, or an empty one for an unknown user
	Load(ctx context.Context, userID string) (*entities.ConversationContext, error)
	Save(ctx context.Context, conversation *entities.ConversationContext) error
}

// AudioStorage stores encoded audio and returns a URL the voice platform can play
type AudioStorage interface {
	Store(ctx context.Context, path, key string) (string, error)
}
