// Package logmsg provides the logging node for workflow graph execution.
package logmsg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roadplatform/road/pkg/template"
)

// LogNode logs a rendered message at a configured level and passes its input
// through unchanged.
type LogNode struct {
	id      string
	message string
	level   string
	logger  *slog.Logger
}

// NewLogNode creates a new logging node.
func NewLogNode(id string, config map[string]any) (*LogNode, error) {
	message, ok := config["message"].(string)
	if !ok {
		return nil, errors.New("missing required field 'message'")
	}

	level := "info"
	if lvl, ok := config["level"].(string); ok {
		level = lvl
	}

	return &LogNode{
		id:      id,
		message: message,
		level:   level,
		logger:  slog.Default(),
	}, nil
}

// Invoke renders and logs the message, then forwards the input downstream.
func (n *LogNode) Invoke(_ context.Context, input map[string]any) (map[string]any, error) {
	rendered, err := template.Render(n.message, map[string]any{"input": input})
	if err != nil {
		return nil, fmt.Errorf("failed to render log message template: %w", err)
	}

	message := fmt.Sprintf("%v", rendered)
	logger := n.logger.With("node_id", n.id, "node_type", "log")

	switch n.level {
	case "debug":
		logger.Debug(message)
	case "warn":
		logger.Warn(message)
	case "error":
		logger.Error(message)
	default:
		logger.Info(message)
	}

	out := make(map[string]any, len(input)+1)
	for k, v := range input {
		out[k] = v
	}

	out["logged"] = message

	return out, nil
}
