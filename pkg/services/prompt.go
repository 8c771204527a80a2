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

// ErrPromptNotFound is returned when a prompt is not found.
var ErrPromptNotFound = persistence.ErrPromptNotFound

// Prompt handles prompt template business operations.
type Prompt struct {
	persistence persistence.Persistence
	validate    *validator.Validate
}

// NewPrompt creates a new prompt service.
func NewPrompt(persistence persistence.Persistence) *Prompt {
	return &Prompt{
		persistence: persistence,
		validate:    validator.New(),
	}
}

// List retrieves prompts filtered by a free-text query and an exact tag.
func (p *Prompt) List(ctx context.Context, query, tag string, limit, offset int) ([]*models.Prompt, error) {
	prompts, err := p.persistence.PromptRepository().ListPrompts(ctx, query, tag, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}

	return prompts, nil
}

// Get retrieves one prompt.
func (p *Prompt) Get(ctx context.Context, id string) (*models.Prompt, error) {
	prompt, err := p.persistence.PromptRepository().GetPrompt(ctx, id)
	if err != nil {
		if persistence.IsPromptNotFound(err) {
			return nil, ErrPromptNotFound
		}

		return nil, fmt.Errorf("failed to get prompt: %w", err)
	}

	return prompt, nil
}

// Create validates and stores a new prompt template.
func (p *Prompt) Create(ctx context.Context, prompt *models.Prompt) (*models.Prompt, error) {
	if err := p.validate.Struct(prompt); err != nil {
		return nil, NewValidationError("CreatePrompt", "INVALID_PROMPT", asValidationMessage(err), ErrInvalidRequest)
	}

	prompt.ID = uuid.New().String()

	if prompt.Version == "" {
		prompt.Version = "1.0.0"
	}

	prompt.CreatedAt = time.Now().UTC()
	prompt.UpdatedAt = prompt.CreatedAt

	if err := p.persistence.PromptRepository().SavePrompt(ctx, prompt); err != nil {
		return nil, fmt.Errorf("failed to save prompt: %w", err)
	}

	return prompt, nil
}

// Update replaces a prompt's content, keeping its id and creation time.
func (p *Prompt) Update(ctx context.Context, id string, prompt *models.Prompt) (*models.Prompt, error) {
	if err := p.validate.Struct(prompt); err != nil {
		return nil, NewValidationError("UpdatePrompt", "INVALID_PROMPT", asValidationMessage(err), ErrInvalidRequest)
	}

	existing, err := p.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	prompt.ID = existing.ID
	prompt.CreatedAt = existing.CreatedAt
	prompt.UpdatedAt = time.Now().UTC()

	if prompt.Version == "" {
		prompt.Version = existing.Version
	}

	if err := p.persistence.PromptRepository().SavePrompt(ctx, prompt); err != nil {
		return nil, fmt.Errorf("failed to save prompt: %w", err)
	}

	return prompt, nil
}

// Delete removes a prompt.
func (p *Prompt) Delete(ctx context.Context, id string) error {
	err := p.persistence.PromptRepository().DeletePrompt(ctx, id)
	if err != nil {
		if persistence.IsPromptNotFound(err) {
			return ErrPromptNotFound
		}

		return fmt.Errorf("failed to delete prompt: %w", err)
	}

	return nil
}
