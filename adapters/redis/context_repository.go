package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/satriahrh/assistbridge/server/domain/entities"
	"github.com/satriahrh/assistbridge/server/domain/repositories"
)

const keyPrefix = "context:"

const (
	fieldState          = "conversation_state"
	fieldLastQueryTime  = "last_query_time"
	fieldMicrophoneOpen = "microphone_open"
	fieldRegistered     = "registered"
)

// NewClient connects to Redis and verifies the connection
func NewClient(ctx context.Context, addr, password string, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis", zap.String("addr", addr))
	return client, nil
}

// ContextRepository stores each context as a hash that expires after ttl
// without activity
type ContextRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewContextRepository creates a new Redis context repository. A zero ttl
// keeps contexts forever.
func NewContextRepository(client *redis.Client, ttl time.Duration) repositories.ContextRepository {
	return &ContextRepository{
		client: client,
		ttl:    ttl,
	}
}

// Load implements repositories.ContextRepository
func (r *ContextRepository) Load(ctx context.Context, userID string) (*entities.ConversationContext, error) {
	if userID == "" {
		return nil, errors.New("user ID cannot be empty")
	}

	fields, err := r.client.HGetAll(ctx, keyPrefix+userID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load context for user %s: %w", userID, err)
	}

	conversation := entities.NewConversationContext(userID)
	if len(fields) == 0 {
		return conversation, nil
	}

	if state := fields[fieldState]; state != "" {
		conversation.ConversationState = []byte(state)
	}
	if v := fields[fieldLastQueryTime]; v != "" {
		conversation.LastQueryTime, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid last query time for user %s: %w", userID, err)
		}
	}
	conversation.MicrophoneOpen = fields[fieldMicrophoneOpen] == "1"
	conversation.Registered = fields[fieldRegistered] == "1"

	return conversation, nil
}

// Save implements repositories.ContextRepository
func (r *ContextRepository) Save(ctx context.Context, conversation *entities.ConversationContext) error {
	if conversation == nil {
		return errors.New("context cannot be nil")
	}
	if err := conversation.Validate(); err != nil {
		return err
	}

	key := keyPrefix + conversation.UserID
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]interface{}{
			fieldState:          conversation.ConversationState,
			fieldLastQueryTime:  conversation.LastQueryTime,
			fieldMicrophoneOpen: flag(conversation.MicrophoneOpen),
			fieldRegistered:     flag(conversation.Registered),
		})
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save context for user %s: %w", conversation.UserID, err)
	}

	return nil
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
