// Package prompt provides the prompt-assembly node for workflow graph execution.
package prompt

import (
	"context"
	"errors"
	"fmt"

	"github.com/roadplatform/road/pkg/template"
)

// PromptNode renders a prompt template against the node's input payload. It is
// the building block RAG pipelines use to assemble the text sent to a model.
type PromptNode struct {
	id           string
	promptTmpl   string
	systemPrompt string
}

// NewPromptNode creates a new prompt node.
func NewPromptNode(id string, config map[string]any) (*PromptNode, error) {
	tmpl, ok := config["template"].(string)
	if !ok {
		return nil, errors.New("missing required field 'template'")
	}

	system, _ := config["system"].(string)

	return &PromptNode{
		id:           id,
		promptTmpl:   tmpl,
		systemPrompt: system,
	}, nil
}

// Invoke renders the configured template with the assembled input.
func (n *PromptNode) Invoke(_ context.Context, input map[string]any) (map[string]any, error) {
	rendered, err := template.Render(n.promptTmpl, map[string]any{"input": input})
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt template: %w", err)
	}

	out := map[string]any{
		"prompt": fmt.Sprintf("%v", rendered),
	}

	if n.systemPrompt != "" {
		out["system"] = n.systemPrompt
	}

	return out, nil
}
