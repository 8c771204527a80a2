package transform

import (
	"context"

	"github.com/roadplatform/road/pkg/runner"
)

// Factory creates TransformNode instances.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() runner.Factory {
	return &Factory{}
}

func (f *Factory) Create(_ context.Context, nodeID string, config map[string]any) (runner.Runner, error) {
	return NewTransformNode(nodeID, config)
}

func (f *Factory) ID() string {
	return "transform"
}

func (f *Factory) Name() string {
	return "Transform"
}

func (f *Factory) Description() string {
	return "Transforms input data using Go template expressions"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "Template expression. The node input is available as {{.input}}.",
				"examples": []string{
					`{"question": "{{.input.query}}", "top_k": 5}`,
					"{{.input.result}}",
				},
			},
		},
		"required": []string{"expression"},
	}
}
