package file

import (
	"context"
	"path"
	"sort"

	"github.com/roadplatform/road/pkg/models"
	"github.com/roadplatform/road/pkg/persistence"
)

// ConversationRepository handles playground conversation file operations,
// keyed by session id.
type ConversationRepository struct {
	root string
}

func (cr *ConversationRepository) dir() string {
	return path.Join(cr.root, "conversations")
}

func (cr *ConversationRepository) ListConversations(ctx context.Context, limit, offset int) ([]*models.Conversation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	names, err := listJSONFiles(cr.dir())
	if err != nil {
		return nil, err
	}

	conversations := make([]*models.Conversation, 0, len(names))

	for _, name := range names {
		var conversation models.Conversation
		if err := readDoc(path.Join(cr.dir(), name), &conversation, persistence.ErrConversationNotFound); err != nil {
			return nil, err
		}

		conversations = append(conversations, &conversation)
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})

	start := offset
	if start > len(conversations) {
		start = len(conversations)
	}

	end := start + limit
	if end > len(conversations) {
		end = len(conversations)
	}

	return conversations[start:end], nil
}

func (cr *ConversationRepository) GetConversation(ctx context.Context, sessionID string) (*models.Conversation, error) {
	var conversation models.Conversation
	if err := readDoc(path.Join(cr.dir(), sessionID+".json"), &conversation, persistence.ErrConversationNotFound); err != nil {
		return nil, persistence.NewStoreError("GetConversation", "conversation", sessionID, err)
	}

	return &conversation, nil
}

func (cr *ConversationRepository) SaveConversation(ctx context.Context, conversation *models.Conversation) error {
	if err := writeDoc(path.Join(cr.dir(), conversation.SessionID+".json"), conversation); err != nil {
		return persistence.NewStoreError("SaveConversation", "conversation", conversation.SessionID, err)
	}

	return nil
}

func (cr *ConversationRepository) DeleteConversation(ctx context.Context, sessionID string) error {
	if err := removeDoc(path.Join(cr.dir(), sessionID+".json"), persistence.ErrConversationNotFound); err != nil {
		return persistence.NewStoreError("DeleteConversation", "conversation", sessionID, err)
	}

	return nil
}
