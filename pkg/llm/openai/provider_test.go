package openai

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
		gotPath string
		gotAuth string
		gotBody string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")

		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "gpt-4.1",
			"choices": [{"message": {"role": "assistant", "content": "hi there"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 3, "total_tokens": 8}
		}`))
	}))
	defer server.Close()

	provider := New(Options{APIKey: "test-key", BaseURL: server.URL})

	response, err := provider.Chat(context.Background(), llm.ChatRequest{
		Model:        "gpt-4.1",
		SystemPrompt: "be brief",
		Messages:     []models.ChatMessage{{Role: "user", Content: "hello"}},
		Parameters:   map[string]any{"temperature": 0.5, "max_tokens": float64(100)},
	})
	require.NoError(t, err)

	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.JSONEq(t, `{
		"model": "gpt-4.1",
		"messages": [
			{"role": "system", "content": "be brief"},
			{"role": "user", "content": "hello"}
		],
		"temperature": 0.5,
		"max_tokens": 100
	}`, gotBody)

	assert.Equal(t, "hi there", response.Content)
	assert.Equal(t, "stop", response.FinishReason)
	require.NotNil(t, response.Usage)
	assert.Equal(t, 8, response.Usage.TotalTokens)
}

func TestChat_NotConfigured(t *testing.T) {
	provider := New(Options{})

	assert.False(t, provider.Available())

	_, err := provider.Chat(context.Background(), llm.ChatRequest{Model: "gpt-4.1"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestChat_AuthenticationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Incorrect API key provided"}}`))
	}))
	defer server.Close()

	provider := New(Options{APIKey: "bad-key", BaseURL: server.URL})

	_, err := provider.Chat(context.Background(), llm.ChatRequest{
		Model:    "gpt-4.1",
		Messages: []models.ChatMessage{{Role: "user", Content: "hello"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication failed")
}

func TestChat_APIErrorDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "model does not exist"}}`))
	}))
	defer server.Close()

	provider := New(Options{APIKey: "test-key", BaseURL: server.URL})

	_, err := provider.Chat(context.Background(), llm.ChatRequest{
		Model:    "gpt-9000",
		Messages: []models.ChatMessage{{Role: "user", Content: "hello"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "model does not exist")
}

func TestChat_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"model": "gpt-4.1", "choices": []}`))
	}))
	defer server.Close()

	provider := New(Options{APIKey: "test-key", BaseURL: server.URL})

	_, err := provider.Chat(context.Background(), llm.ChatRequest{
		Model:    "gpt-4.1",
		Messages: []models.ChatMessage{{Role: "user", Content: "hello"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestGroqProviderUsesSameWireFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		_, _ = w.Write([]byte(`{
			"model": "llama-3.3-70b-versatile",
			"choices": [{"message": {"role": "assistant", "content": "fast"}, "finish_reason": "stop"}]
		}`))
	}))
	defer server.Close()

	provider := NewGroq(Options{APIKey: "groq-key", BaseURL: server.URL})
	assert.Equal(t, "groq", provider.ID())

	response, err := provider.Chat(context.Background(), llm.ChatRequest{
		Model:    "llama-3.3-70b-versatile",
		Messages: []models.ChatMessage{{Role: "user", Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "fast", response.Content)
}

func TestModelsCarryProviderID(t *testing.T) {
	for _, info := range New(Options{}).Models() {
		assert.Equal(t, "openai", info.Provider)
	}

	for _, info := range NewGroq(Options{}).Models() {
		assert.Equal(t, "groq", info.Provider)
	}
}
