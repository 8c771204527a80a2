package logmsg

import (
	"context"

	"github.com/roadplatform/road/pkg/runner"
)

// Factory creates LogNode instances.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() runner.Factory {
	return &Factory{}
}

func (f *Factory) Create(_ context.Context, nodeID string, config map[string]any) (runner.Runner, error) {
	return NewLogNode(nodeID, config)
}

func (f *Factory) ID() string {
	return "log"
}

func (f *Factory) Name() string {
	return "Log"
}

func (f *Factory) Description() string {
	return "Logs a templated message and passes the input through"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Message to log. The node input is available as {{.input}}.",
			},
			"level": map[string]any{
				"type":        "string",
				"description": "Log level for the message",
				"enum":        []string{"debug", "info", "warn", "error"},
				"default":     "info",
			},
		},
		"required": []string{"message"},
	}
}
