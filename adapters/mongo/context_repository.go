package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/satriahrh/assistbridge/server/domain/entities"
	"github.com/satriahrh/assistbridge/server/domain/repositories"
)

// ContextCollection stores one document per user, keyed by user id
const ContextCollection = "conversation_contexts"

type ContextRepository struct {
	collection *mongo.Collection
}

// NewContextRepository creates a new MongoDB context repository
func NewContextRepository(db *mongo.Database) repositories.ContextRepository {
	return &ContextRepository{
		collection: db.Collection(ContextCollection),
	}
}

// Load implements repositories.ContextRepository
func (r *ContextRepository) Load(ctx context.Context, userID string) (*entities.ConversationContext, error) {
	if userID == "" {
		return nil, errors.New("user ID cannot be empty")
	}

	var conversation entities.ConversationContext
	err := r.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&conversation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return entities.NewConversationContext(userID), nil
		}
		return nil, fmt.Errorf("failed to load context for user %s: %w", userID, err)
	}

	return &conversation, nil
}

// Save implements repositories.ContextRepository
func (r *ContextRepository) Save(ctx context.Context, conversation *entities.ConversationContext) error {
	if conversation == nil {
		return errors.New("context cannot be nil")
	}
	if err := conversation.Validate(); err != nil {
		return err
	}

	_, err := r.collection.ReplaceOne(
		ctx,
		bson.M{"_id": conversation.UserID},
		conversation,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save context for user %s: %w", conversation.UserID, err)
	}

	return nil
}
