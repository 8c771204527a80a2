// Package transform provides the data transformation node for workflow graph execution.
package transform

import (
	"context"
	"errors"
	"fmt"

	"github.com/roadplatform/road/pkg/template"
)

// TransformNode reshapes its input using a Go template expression.
type TransformNode struct {
	id         string
	expression string
}

// NewTransformNode creates a new data transformation node.
func NewTransformNode(id string, config map[string]any) (*TransformNode, error) {
	expression, ok := config["expression"].(string)
	if !ok {
		return nil, errors.New("missing required field 'expression'")
	}

	return &TransformNode{
		id:         id,
		expression: expression,
	}, nil
}

// Invoke renders the expression against the input. A rendered JSON object
// becomes the node output directly; any other value lands under "result".
func (n *TransformNode) Invoke(_ context.Context, input map[string]any) (map[string]any, error) {
	result, err := template.Render(n.expression, map[string]any{"input": input})
	if err != nil {
		return nil, fmt.Errorf("transformation failed: %w", err)
	}

	if obj, ok := result.(map[string]any); ok {
		return obj, nil
	}

	return map[string]any{"result": result}, nil
}
