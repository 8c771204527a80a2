package prompt

import (
	"context"

	"github.com/roadplatform/road/pkg/runner"
)

// Factory creates PromptNode instances.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() runner.Factory {
	return &Factory{}
}

func (f *Factory) Create(_ context.Context, nodeID string, config map[string]any) (runner.Runner, error) {
	return NewPromptNode(nodeID, config)
}

func (f *Factory) ID() string {
	return "prompt"
}

func (f *Factory) Name() string {
	return "Prompt"
}

func (f *Factory) Description() string {
	return "Assembles a prompt from a template and the node's input data"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"template": map[string]any{
				"type":        "string",
				"description": "Prompt template. The node input is available as {{.input}}.",
				"examples": []string{
					"Answer the question using the context.\nContext: {{.input.documents}}\nQuestion: {{.input.question}}",
				},
			},
			"system": map[string]any{
				"type":        "string",
				"description": "Optional system prompt passed through unchanged",
			},
		},
		"required": []string{"template"},
	}
}
