// Package llm defines the provider abstraction behind the playground chat
// surface: a common chat request/response shape and a registry of vendor
// providers that serve it.
package llm

import (
	"context"

	"github.com/roadplatform/road/pkg/models"
)

// ChatRequest is one chat turn sent to a provider. Messages carry the whole
// conversation so far; Parameters holds vendor-tunable generation settings
// (temperature, max_tokens, top_p, stop) that providers pick from by key.
type ChatRequest struct {
	Model        string
	Messages     []models.ChatMessage
	SystemPrompt string
	Parameters   map[string]any
}

// ChatResponse is the provider's completion for one chat turn.
type ChatResponse struct {
	Content      string
	Model        string
	FinishReason string
	Usage        *Usage
}

// Usage reports token consumption when the vendor returns it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ModelInfo describes one model a provider can serve.
type ModelInfo struct {
	Name              string `json:"name"`
	Provider          string `json:"provider"`
	Description       string `json:"description"`
	MaxTokens         int    `json:"max_tokens"`
	SupportsStreaming bool   `json:"supports_streaming"`
}

// Provider is one LLM vendor. Implementations are safe for concurrent use.
type Provider interface {
	// ID is the stable identifier clients select the provider by.
	ID() string
	Name() string
	Description() string

	// Models lists the models this provider serves.
	Models() []ModelInfo

	// Available reports whether the provider is configured with credentials.
	Available() bool

	// Chat performs one completion round trip.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}
