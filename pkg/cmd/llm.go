package cmd

import (
	"log/slog"

	"github.com/roadplatform/road/pkg/llm"
	"github.com/roadplatform/road/pkg/llm/anthropic"
	"github.com/roadplatform/road/pkg/llm/openai"
)

// LLMKeys carries the per-vendor API keys. A provider without a key stays
// registered but reports itself unavailable, so the listing still shows it.
type LLMKeys struct {
	OpenAI    string
	Anthropic string
	Groq      string
}

// NewLLMRegistry builds the playground provider registry with the native
// providers registered.
func NewLLMRegistry(logger *slog.Logger, keys LLMKeys) *llm.Registry {
	reg := llm.NewRegistry(logger)

	reg.Register(openai.New(openai.Options{APIKey: keys.OpenAI}))
	reg.Register(openai.NewGroq(openai.Options{APIKey: keys.Groq}))
	reg.Register(anthropic.New(anthropic.Options{APIKey: keys.Anthropic}))

	return reg
}
