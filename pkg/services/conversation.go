package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/roadplatform/road/pkg/models"
	"github.com/roadplatform/road/pkg/persistence"
)

// ErrConversationNotFound is returned when no conversation exists for a session.
var ErrConversationNotFound = persistence.ErrConversationNotFound

// Conversation handles playground conversation business operations.
type Conversation struct {
	persistence persistence.Persistence
	validate    *validator.Validate
}

// NewConversation creates a new conversation service.
func NewConversation(persistence persistence.Persistence) *Conversation {
	return &Conversation{
		persistence: persistence,
		validate:    validator.New(),
	}
}

// List retrieves stored conversations, most recently updated first.
func (c *Conversation) List(ctx context.Context, limit, offset int) ([]*models.Conversation, error) {
	conversations, err := c.persistence.ConversationRepository().ListConversations(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	return conversations, nil
}

// Get retrieves the conversation for a session.
func (c *Conversation) Get(ctx context.Context, sessionID string) (*models.Conversation, error) {
	conversation, err := c.persistence.ConversationRepository().GetConversation(ctx, sessionID)
	if err != nil {
		if persistence.IsConversationNotFound(err) {
			return nil, ErrConversationNotFound
		}

		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return conversation, nil
}

// Save upserts the conversation for a session.
func (c *Conversation) Save(ctx context.Context, conversation *models.Conversation) (*models.Conversation, error) {
	if err := c.validate.Struct(conversation); err != nil {
		return nil, NewValidationError("SaveConversation", "INVALID_CONVERSATION", asValidationMessage(err), ErrInvalidRequest)
	}

	existing, err := c.persistence.ConversationRepository().GetConversation(ctx, conversation.SessionID)
	if err == nil {
		conversation.ID = existing.ID
		conversation.CreatedAt = existing.CreatedAt
	} else {
		if !persistence.IsConversationNotFound(err) {
			return nil, fmt.Errorf("failed to get conversation: %w", err)
		}

		conversation.ID = uuid.New().String()
		conversation.CreatedAt = time.Now().UTC()
	}

	conversation.UpdatedAt = time.Now().UTC()

	if err := c.persistence.ConversationRepository().SaveConversation(ctx, conversation); err != nil {
		return nil, fmt.Errorf("failed to save conversation: %w", err)
	}

	return conversation, nil
}

// Delete removes the conversation for a session.
func (c *Conversation) Delete(ctx context.Context, sessionID string) error {
	err := c.persistence.ConversationRepository().DeleteConversation(ctx, sessionID)
	if err != nil {
		if persistence.IsConversationNotFound(err) {
			return ErrConversationNotFound
		}

		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	return nil
}
