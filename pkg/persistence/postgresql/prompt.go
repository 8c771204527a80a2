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

// PromptRepository handles prompt template database operations.
type PromptRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPromptRepository creates a new prompt repository.
func NewPromptRepository(db *sql.DB, logger *slog.Logger) *PromptRepository {
	return &PromptRepository{db: db, logger: logger}
}

func (r *PromptRepository) ListPrompts(ctx context.Context, query string, tag string, limit, offset int) ([]*models.Prompt, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	listQuery := `
		SELECT
			id
		  , name
		  , version
		  , content
		  , description
		  , author
		  , tags
		  , is_active
		  , created_at
		  , updated_at
		FROM prompts
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR tags ? $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.QueryContext(ctx, listQuery, query, tag, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query prompts: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	prompts := make([]*models.Prompt, 0)

	for rows.Next() {
		prompt, err := scanPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prompt: %w", err)
		}

		prompts = append(prompts, prompt)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating prompts: %w", err)
	}

	return prompts, nil
}

func (r *PromptRepository) GetPrompt(ctx context.Context, id string) (*models.Prompt, error) {
	query := `
		SELECT
			id
		  , name
		  , version
		  , content
		  , description
		  , author
		  , tags
		  , is_active
		  , created_at
		  , updated_at
		FROM prompts
		WHERE id = $1
	`

	prompt, err := scanPrompt(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetPrompt", "prompt", id, persistence.ErrPromptNotFound)
		}

		return nil, fmt.Errorf("failed to scan prompt: %w", err)
	}

	return prompt, nil
}

func (r *PromptRepository) SavePrompt(ctx context.Context, prompt *models.Prompt) error {
	now := time.Now().UTC()

	if prompt.CreatedAt.IsZero() {
		prompt.CreatedAt = now
	}

	prompt.UpdatedAt = now

	tagsJSON, err := json.Marshal(prompt.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	query := `
		INSERT INTO prompts (id, name, version, content, description, author, tags, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			version = EXCLUDED.version,
			content = EXCLUDED.content,
			description = EXCLUDED.description,
			author = EXCLUDED.author,
			tags = EXCLUDED.tags,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		prompt.ID,
		prompt.Name,
		prompt.Version,
		prompt.Content,
		prompt.Description,
		prompt.Author,
		tagsJSON,
		prompt.IsActive,
		prompt.CreatedAt,
		prompt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save prompt: %w", err)
	}

	return nil
}

func (r *PromptRepository) DeletePrompt(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM prompts WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete prompt: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError("DeletePrompt", "prompt", id, persistence.ErrPromptNotFound)
	}

	return nil
}

func scanPrompt(row rowScanner) (*models.Prompt, error) {
	var (
		prompt   models.Prompt
		author   sql.NullString
		tagsJSON []byte
	)

	err := row.Scan(
		&prompt.ID,
		&prompt.Name,
		&prompt.Version,
		&prompt.Content,
		&prompt.Description,
		&author,
		&tagsJSON,
		&prompt.IsActive,
		&prompt.CreatedAt,
		&prompt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(tagsJSON, &prompt.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}

	prompt.Author = author.String

	return &prompt, nil
}
