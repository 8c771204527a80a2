package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roadplatform/road/pkg/models"
	"github.com/roadplatform/road/pkg/persistence"
)

// ConversationRepository handles playground conversation database operations.
type ConversationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewConversationRepository creates a new conversation repository.
func NewConversationRepository(db *sql.DB, logger *slog.Logger) *ConversationRepository {
	return &ConversationRepository{db: db, logger: logger}
}

func (r *ConversationRepository) ListConversations(ctx context.Context, limit, offset int) ([]*models.Conversation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT
			id
		  , session_id
		  , model_name
		  , model_provider
		  , system_prompt
		  , messages
		  , parameters
		  , created_at
		  , updated_at
		FROM conversations
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	conversations := make([]*models.Conversation, 0)

	for rows.Next() {
		conversation, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}

		conversations = append(conversations, conversation)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}

	return conversations, nil
}

func (r *ConversationRepository) GetConversation(ctx context.Context, sessionID string) (*models.Conversation, error) {
	query := `
		SELECT
			id
		  , session_id
		  , model_name
		  , model_provider
		  , system_prompt
		  , messages
		  , parameters
		  , created_at
		  , updated_at
		FROM conversations
		WHERE session_id = $1
	`

	conversation, err := scanConversation(r.db.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetConversation", "conversation", sessionID, persistence.ErrConversationNotFound)
		}

		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}

	return conversation, nil
}

func (r *ConversationRepository) SaveConversation(ctx context.Context, conversation *models.Conversation) error {
	now := time.Now().UTC()

	if conversation.CreatedAt.IsZero() {
		conversation.CreatedAt = now
	}

	conversation.UpdatedAt = now

	messagesJSON, err := json.Marshal(conversation.Messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	parametersJSON, err := json.Marshal(conversation.Parameters)
	if err != nil {
		return fmt.Errorf("failed to marshal parameters: %w", err)
	}

	query := `
		INSERT INTO conversations (id, session_id, model_name, model_provider, system_prompt, messages, parameters, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_id) DO UPDATE SET
			model_name = EXCLUDED.model_name,
			model_provider = EXCLUDED.model_provider,
			system_prompt = EXCLUDED.system_prompt,
			messages = EXCLUDED.messages,
			parameters = EXCLUDED.parameters,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		conversation.ID,
		conversation.SessionID,
		conversation.ModelName,
		conversation.ModelProvider,
		conversation.SystemPrompt,
		messagesJSON,
		parametersJSON,
		conversation.CreatedAt,
		conversation.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}

	return nil
}

func (r *ConversationRepository) DeleteConversation(ctx context.Context, sessionID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM conversations WHERE session_id = $1", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError("DeleteConversation", "conversation", sessionID, persistence.ErrConversationNotFound)
	}

	return nil
}

func scanConversation(row rowScanner) (*models.Conversation, error) {
	var (
		conversation   models.Conversation
		systemPrompt   sql.NullString
		messagesJSON   []byte
		parametersJSON []byte
	)

	err := row.Scan(
		&conversation.ID,
		&conversation.SessionID,
		&conversation.ModelName,
		&conversation.ModelProvider,
		&systemPrompt,
		&messagesJSON,
		&parametersJSON,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(messagesJSON, &conversation.Messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
	}

	if err := unmarshalJSONMap(parametersJSON, &conversation.Parameters); err != nil {
		return nil, err
	}

	conversation.SystemPrompt = systemPrompt.String

	return &conversation, nil
}
