package anthropic

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadplatform/road/pkg/llm"
	"github.com/roadplatform/road/pkg/models"
)

func TestChat(t *testing.T) {
	var (
		gotPath    string
		gotKey     string
		gotVersion string
		gotBody    string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")

		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "claude-3-5-haiku-20241022",
			"content": [{"type": "text", "text": "hello "}, {"type": "text", "text": "human"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 4}
		}`))
	}))
	defer server.Close()

	provider := New(Options{APIKey: "test-key", BaseURL: server.URL})

	response, err := provider.Chat(context.Background(), llm.ChatRequest{
		Model:        "claude-3-5-haiku-20241022",
		SystemPrompt: "be brief",
		Messages:     []models.ChatMessage{{Role: "user", Content: "hi"}},
		Parameters:   map[string]any{"max_tokens": float64(256), "temperature": 0.2},
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1/messages", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, apiVersion, gotVersion)
	assert.JSONEq(t, `{
		"model": "claude-3-5-haiku-20241022",
		"max_tokens": 256,
		"system": "be brief",
		"temperature": 0.2,
		"messages": [{"role": "user", "content": "hi"}]
	}`, gotBody)

	assert.Equal(t, "hello human", response.Content)
	assert.Equal(t, "end_turn", response.FinishReason)
	require.NotNil(t, response.Usage)
	assert.Equal(t, 10, response.Usage.PromptTokens)
	assert.Equal(t, 4, response.Usage.CompletionTokens)
	assert.Equal(t, 14, response.Usage.TotalTokens)
}

func TestChat_SystemMessageLiftedFromHistory(t *testing.T) {
	var gotBody string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)

		_, _ = w.Write([]byte(`{"model": "m", "content": [{"type": "text", "text": "ok"}]}`))
	}))
	defer server.Close()

	provider := New(Options{APIKey: "test-key", BaseURL: server.URL})

	_, err := provider.Chat(context.Background(), llm.ChatRequest{
		Model: "claude-3-5-haiku-20241022",
		Messages: []models.ChatMessage{
			{Role: "system", Content: "act formal"},
			{Role: "user", Content: "hi"},
		},
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"model": "claude-3-5-haiku-20241022",
		"max_tokens": 1024,
		"system": "act formal",
		"messages": [{"role": "user", "content": "hi"}]
	}`, gotBody)
}

func TestChat_NotConfigured(t *testing.T) {
	provider := New(Options{})

	assert.False(t, provider.Available())

	_, err := provider.Chat(context.Background(), llm.ChatRequest{Model: "claude-3-5-haiku-20241022"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestChat_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "too many requests"}}`))
	}))
	defer server.Close()

	provider := New(Options{APIKey: "test-key", BaseURL: server.URL})

	_, err := provider.Chat(context.Background(), llm.ChatRequest{
		Model:    "claude-3-5-haiku-20241022",
		Messages: []models.ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}
