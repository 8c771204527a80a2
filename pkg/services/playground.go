package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/roadplatform/road/pkg/llm"
	"github.com/roadplatform/road/pkg/models"
)

// Playground handles chat requests against the registered LLM providers and
// persists sessions into the conversation store.
type Playground struct {
	logger        *slog.Logger
	providers     *llm.Registry
	conversations *Conversation
	validate      *validator.Validate
}

// NewPlayground creates a new playground service.
func NewPlayground(logger *slog.Logger, providers *llm.Registry, conversations *Conversation) *Playground {
	return &Playground{
		logger:        logger.With("module", "playground"),
		providers:     providers,
		conversations: conversations,
		validate:      validator.New(),
	}
}

// ChatRequest is one playground chat turn.
type ChatRequest struct {
	Provider     string               `json:"model_provider" validate:"required"`
	Model        string               `json:"model_name"     validate:"required"`
	Messages     []models.ChatMessage `json:"messages"       validate:"required,min=1,dive"`
	SystemPrompt string               `json:"system_prompt,omitempty"`
	Parameters   map[string]any       `json:"parameters,omitempty"`
	SessionID    string               `json:"session_id,omitempty"`
}

// ChatResponse is the playground's answer to one chat turn.
type ChatResponse struct {
	Message        models.ChatMessage `json:"message"`
	ModelName      string             `json:"model_name"`
	ModelProvider  string             `json:"model_provider"`
	Usage          *llm.Usage         `json:"usage,omitempty"`
	ResponseTimeMs int64              `json:"response_time_ms"`
	SessionID      string             `json:"session_id,omitempty"`
}

// Chat dispatches the request to the selected provider and, when a session id
// is given, saves the extended conversation. A failed save does not discard
// the completion: the response is returned and the write is retried on the
// session's next turn.
func (p *Playground) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := p.validate.Struct(req); err != nil {
		return nil, NewValidationError("Chat", "INVALID_CHAT_REQUEST", asValidationMessage(err), ErrInvalidRequest)
	}

	provider, err := p.providers.Provider(req.Provider)
	if err != nil {
		return nil, NewValidationError("Chat", "UNKNOWN_PROVIDER", err.Error(), ErrInvalidRequest)
	}

	started := time.Now()

	completion, err := provider.Chat(ctx, llm.ChatRequest{
		Model:        req.Model,
		Messages:     req.Messages,
		SystemPrompt: req.SystemPrompt,
		Parameters:   req.Parameters,
	})
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}

	now := time.Now().UTC()
	assistant := models.ChatMessage{
		Role:      "assistant",
		Content:   completion.Content,
		Timestamp: &now,
	}

	if req.SessionID != "" {
		conversation := &models.Conversation{
			SessionID:     req.SessionID,
			ModelName:     req.Model,
			ModelProvider: req.Provider,
			SystemPrompt:  req.SystemPrompt,
			Messages:      append(append([]models.ChatMessage{}, req.Messages...), assistant),
			Parameters:    req.Parameters,
		}

		if _, err := p.conversations.Save(ctx, conversation); err != nil {
			p.logger.Warn("Failed to save conversation", "session_id", req.SessionID, "error", err)
		}
	}

	return &ChatResponse{
		Message:        assistant,
		ModelName:      req.Model,
		ModelProvider:  req.Provider,
		Usage:          completion.Usage,
		ResponseTimeMs: time.Since(started).Milliseconds(),
		SessionID:      req.SessionID,
	}, nil
}

// Models lists every model served by the registered providers.
func (p *Playground) Models() []llm.ModelInfo {
	return p.providers.Models()
}

// Providers lists the registered providers and their availability.
func (p *Playground) Providers() []llm.ProviderInfo {
	return p.providers.Providers()
}
