package adapters

import (
	"context"
	"errors"
	"sync"

	"github.com/satriahrh/assistbridge/server/domain/entities"
)

// MemoryContextRepository keeps conversation contexts in process memory.
// Contexts are lost on restart.
type MemoryContextRepository struct {
	mu       sync.RWMutex
	contexts map[string]*entities.ConversationContext // user id -> context
}

// NewMemoryContextRepository creates a new in-memory context repository
func NewMemoryContextRepository() *MemoryContextRepository {
	return &MemoryContextRepository{
		contexts: make(map[string]*entities.ConversationContext),
	}
}

// Load implements ContextRepository interface
func (m *MemoryContextRepository) Load(ctx context.Context, userID string) (*entities.ConversationContext, error) {
	if userID == "" {
		return nil, errors.New("user ID cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, exists := m.contexts[userID]
	if !exists {
		return entities.NewConversationContext(userID), nil
	}

	// Return a copy to prevent external modifications
	return clone(stored), nil
}

// Save implements ContextRepository interface
func (m *MemoryContextRepository) Save(ctx context.Context, conversation *entities.ConversationContext) error {
	if conversation == nil {
		return errors.New("context cannot be nil")
	}
	if err := conversation.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.contexts[conversation.UserID] = clone(conversation)
	return nil
}

func clone(c *entities.ConversationContext) *entities.ConversationContext {
	cp := *c
	if c.ConversationState != nil {
		cp.ConversationState = append([]byte(nil), c.ConversationState...)
	}
	return &cp
}
