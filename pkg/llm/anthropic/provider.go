// Package anthropic provides the Anthropic messages API provider.
package anthropic

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
)

const (
	defaultBaseURL        = "https://api.anthropic.com"
	apiVersion            = "2023-06-01"
	defaultMaxTokens      = 1024
	defaultTimeoutSeconds = 120
)

// ErrNotConfigured is returned by Chat when the provider has no API key.
var ErrNotConfigured = errors.New("provider is not configured: missing API key")

// Options configure the Anthropic provider.
type Options struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Provider talks to the Anthropic messages API.
type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates the Anthropic provider.
func New(opts Options) *Provider {
	baseURL := defaultBaseURL
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeoutSeconds * time.Second
	}

	return &Provider{
		apiKey:  opts.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *Provider) ID() string          { return "anthropic" }
func (p *Provider) Name() string        { return "Anthropic" }
func (p *Provider) Description() string { return "Anthropic Claude models" }

func (p *Provider) Models() []llm.ModelInfo {
	return []llm.ModelInfo{
		{
			Name:              "claude-3-5-sonnet-20241022",
			Provider:          "anthropic",
			Description:       "Balanced intelligence and speed",
			MaxTokens:         8192,
			SupportsStreaming: true,
		},
		{
			Name:              "claude-3-5-haiku-20241022",
			Provider:          "anthropic",
			Description:       "Fastest Claude model",
			MaxTokens:         8192,
			SupportsStreaming: true,
		},
	}
}

func (p *Provider) Available() bool { return p.apiKey != "" }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model         string    `json:"model"`
	MaxTokens     int       `json:"max_tokens"`
	Messages      []message `json:"messages"`
	System        string    `json:"system,omitempty"`
	Temperature   *float64  `json:"temperature,omitempty"`
	TopP          *float64  `json:"top_p,omitempty"`
	StopSequences []string  `json:"stop_sequences,omitempty"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Chat performs one messages API round trip. System-role messages are lifted
// into the request's system field, which is where this API expects them.
func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if !p.Available() {
		return nil, ErrNotConfigured
	}

	payload := messagesRequest{
		Model:     req.Model,
		MaxTokens: defaultMaxTokens,
		System:    req.SystemPrompt,
	}

	for _, msg := range req.Messages {
		if msg.Role == "system" {
			if payload.System == "" {
				payload.System = msg.Content
			}

			continue
		}

		payload.Messages = append(payload.Messages, message{Role: msg.Role, Content: msg.Content})
	}

	if v, ok := llm.IntParam(req.Parameters, "max_tokens"); ok {
		payload.MaxTokens = v
	}

	if v, ok := llm.FloatParam(req.Parameters, "temperature"); ok {
		payload.Temperature = &v
	}

	if v, ok := llm.FloatParam(req.Parameters, "top_p"); ok {
		payload.TopP = &v
	}

	if v, ok := llm.StringSliceParam(req.Parameters, "stop"); ok {
		payload.StopSequences = v
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build chat request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("Anthropic request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Anthropic response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, apiError(resp.StatusCode, raw)
	}

	var decoded messagesResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode Anthropic response: %w", err)
	}

	var content strings.Builder

	for _, block := range decoded.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	response := &llm.ChatResponse{
		Content:      content.String(),
		Model:        decoded.Model,
		FinishReason: decoded.StopReason,
	}

	if decoded.Usage != nil {
		response.Usage = &llm.Usage{
			PromptTokens:     decoded.Usage.InputTokens,
			CompletionTokens: decoded.Usage.OutputTokens,
			TotalTokens:      decoded.Usage.InputTokens + decoded.Usage.OutputTokens,
		}
	}

	return response, nil
}

func apiError(status int, raw []byte) error {
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
		return errors.New("Anthropic authentication failed: check the API key")
	case http.StatusTooManyRequests:
		return fmt.Errorf("Anthropic rate limit exceeded: %s", detail)
	default:
		return fmt.Errorf("Anthropic request returned status %d: %s", status, detail)
	}
}
