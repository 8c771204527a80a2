// Package openai provides the OpenAI chat completions provider. Groq exposes
// the same wire format, so the Groq provider reuses this implementation
// against Groq's endpoint.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/roadplatform/road/pkg/llm"
	"github.com/roadplatform/road/pkg/models"
)

const (
	defaultBaseURL        = "https://api.openai.com/v1"
	groqBaseURL           = "https://api.groq.com/openai/v1"
	defaultTimeoutSeconds = 120
)

// ErrNotConfigured is returned by Chat when the provider has no API key.
var ErrNotConfigured = errors.New("provider is not configured: missing API key")

// Options configure a chat completions provider.
type Options struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Provider talks to an OpenAI-compatible chat completions endpoint.
type Provider struct {
	id          string
	name        string
	description string
	apiKey      string
	baseURL     string
	models      []llm.ModelInfo
	client      *http.Client
}

// New creates the OpenAI provider.
func New(opts Options) *Provider {
	return newProvider("openai", "OpenAI", "OpenAI GPT models", defaultBaseURL, openAIModels(), opts)
}

// NewGroq creates the Groq provider over the same chat completions format.
func NewGroq(opts Options) *Provider {
	return newProvider("groq", "Groq", "Groq-hosted open models", groqBaseURL, groqModels(), opts)
}

func newProvider(id, name, description, baseURL string, modelInfos []llm.ModelInfo, opts Options) *Provider {
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeoutSeconds * time.Second
	}

	return &Provider{
		id:          id,
		name:        name,
		description: description,
		apiKey:      opts.APIKey,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		models:      modelInfos,
		client:      &http.Client{Timeout: timeout},
	}
}

func (p *Provider) ID() string          { return p.id }
func (p *Provider) Name() string        { return p.name }
func (p *Provider) Description() string { return p.description }

func (p *Provider) Models() []llm.ModelInfo { return p.models }

func (p *Provider) Available() bool { return p.apiKey != "" }

type chatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model            string                  `json:"model"`
	Messages         []chatCompletionMessage `json:"messages"`
	Temperature      *float64                `json:"temperature,omitempty"`
	MaxTokens        *int                    `json:"max_tokens,omitempty"`
	TopP             *float64                `json:"top_p,omitempty"`
	PresencePenalty  *float64                `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64                `json:"frequency_penalty,omitempty"`
	Stop             []string                `json:"stop,omitempty"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatCompletionMessage `json:"message"`
		FinishReason string                `json:"finish_reason"`
	} `json:"choices"`
	Usage *llm.Usage `json:"usage"`
}

// Chat performs one chat completions round trip.
func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if !p.Available() {
		return nil, ErrNotConfigured
	}

	payload := chatCompletionRequest{
		Model:    req.Model,
		Messages: formatMessages(req.Messages, req.SystemPrompt),
	}

	if v, ok := llm.FloatParam(req.Parameters, "temperature"); ok {
		payload.Temperature = &v
	}

	if v, ok := llm.IntParam(req.Parameters, "max_tokens"); ok {
		payload.MaxTokens = &v
	}

	if v, ok := llm.FloatParam(req.Parameters, "top_p"); ok {
		payload.TopP = &v
	}

	if v, ok := llm.FloatParam(req.Parameters, "presence_penalty"); ok {
		payload.PresencePenalty = &v
	}

	if v, ok := llm.FloatParam(req.Parameters, "frequency_penalty"); ok {
		payload.FrequencyPenalty = &v
	}

	if v, ok := llm.StringSliceParam(req.Parameters, "stop"); ok {
		payload.Stop = v
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build chat request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", p.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", p.name, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, apiError(p.name, resp.StatusCode, raw)
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(raw, &completion); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", p.name, err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", p.name)
	}

	return &llm.ChatResponse{
		Content:      completion.Choices[0].Message.Content,
		Model:        completion.Model,
		FinishReason: completion.Choices[0].FinishReason,
		Usage:        completion.Usage,
	}, nil
}

func formatMessages(messages []models.ChatMessage, systemPrompt string) []chatCompletionMessage {
	formatted := make([]chatCompletionMessage, 0, len(messages)+1)

	if systemPrompt != "" {
		formatted = append(formatted, chatCompletionMessage{Role: "system", Content: systemPrompt})
	}

	for _, message := range messages {
		formatted = append(formatted, chatCompletionMessage{Role: message.Role, Content: message.Content})
	}

	return formatted
}

func apiError(provider string, status int, raw []byte) error {
	detail := strings.TrimSpace(string(raw))

	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		detail = body.Error.Message
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s authentication failed: check the API key", provider)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s rate limit exceeded: %s", provider, detail)
	default:
		return fmt.Errorf("%s request returned status %d: %s", provider, status, detail)
	}
}

func openAIModels() []llm.ModelInfo {
	return []llm.ModelInfo{
		{
			Name:              "gpt-4.1",
			Provider:          "openai",
			Description:       "Flagship GPT model for complex tasks",
			MaxTokens:         32768,
			SupportsStreaming: true,
		},
		{
			Name:              "gpt-4-turbo-preview",
			Provider:          "openai",
			Description:       "GPT-4 Turbo with a large context window",
			MaxTokens:         128000,
			SupportsStreaming: true,
		},
		{
			Name:              "gpt-3.5-turbo",
			Provider:          "openai",
			Description:       "Fast and efficient for most tasks",
			MaxTokens:         4096,
			SupportsStreaming: true,
		},
	}
}

func groqModels() []llm.ModelInfo {
	return []llm.ModelInfo{
		{
			Name:              "llama-3.3-70b-versatile",
			Provider:          "groq",
			Description:       "Llama 3.3 70B on Groq hardware",
			MaxTokens:         32768,
			SupportsStreaming: true,
		},
		{
			Name:              "mixtral-8x7b-32768",
			Provider:          "groq",
			Description:       "Mixtral 8x7B with a 32K context window",
			MaxTokens:         32768,
			SupportsStreaming: true,
		},
	}
}
