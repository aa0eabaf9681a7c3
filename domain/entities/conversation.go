package entities

import (
	"errors"
	"time"
)

// NewConversationTimeLapse is how long a conversation may stay idle before the
// assistant is told to start a fresh one.
const NewConversationTimeLapse = 900 * time.Second

// ConversationContext holds the state that survives between turns for a user.
type ConversationContext struct {
	UserID            string `json:"user_id" bson:"_id"`
	ConversationState []byte `json:"conversation_state,omitempty" bson:"conversation_state,omitempty"`
	LastQueryTime     int64  `json:"last_query_time" bson:"last_query_time"`
	MicrophoneOpen    bool   `json:"microphone_open" bson:"microphone_open"`
	Registered        bool   `json:"registered" bson:"registered"`
}

// NewConversationContext creates an empty context for a user's first interaction
func NewConversationContext(userID string) *ConversationContext {
	return &ConversationContext{UserID: userID}
}

// HasState reports whether a continuation token from an earlier turn is present
func (c *ConversationContext) HasState() bool {
	return c != nil && len(c.ConversationState) > 0
}

// Continuity decides whether a turn starts a new conversation and which
// continuation token, if any, goes with it. The token is attached even when
// the conversation has expired; the assistant is free to use it.
func Continuity(prior *ConversationContext, now time.Time) (isNew bool, state []byte) {
	if !prior.HasState() {
		return true, nil
	}

	elapsed := now.Unix() - prior.LastQueryTime
	return elapsed >= int64(NewConversationTimeLapse/time.Second), prior.ConversationState
}

// Advance records the continuation token of a successful turn. Empty tokens
// leave the previous state untouched.
func (c *ConversationContext) Advance(state []byte, now time.Time) bool {
	if len(state) == 0 {
		return false
	}

	c.ConversationState = append([]byte(nil), state...)
	c.LastQueryTime = now.Unix()
	return true
}

// ApplyMicrophoneMode stores the assistant's follow-on hint
func (c *ConversationContext) ApplyMicrophoneMode(mode MicrophoneMode) {
	switch mode {
	case MicrophoneClose:
		c.MicrophoneOpen = false
	case MicrophoneDialogFollowOn:
		c.MicrophoneOpen = true
	}
}

// Validate validates the context data
func (c *ConversationContext) Validate() error {
	if c.UserID == "" {
		return errors.New("user_id is required")
	}
	return nil
}
