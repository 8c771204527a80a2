package httprequest

import (
	"context"

	"github.com/roadplatform/road/pkg/runner"
)

// Factory creates HTTPRequestNode instances.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() runner.Factory {
	return &Factory{}
}

func (f *Factory) Create(_ context.Context, nodeID string, config map[string]any) (runner.Runner, error) {
	return NewHTTPRequestNode(nodeID, config)
}

func (f *Factory) ID() string {
	return "http_request"
}

func (f *Factory) Name() string {
	return "HTTP Request"
}

func (f *Factory) Description() string {
	return "Performs an HTTP request with templated URL and body"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Request URL. Supports templating against the node input.",
			},
			"method": map[string]any{
				"type":    "string",
				"enum":    []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
				"default": "GET",
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "Request headers",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Request body template, encoded as JSON",
			},
			"timeout": map[string]any{
				"type":        "number",
				"description": "Request timeout in seconds",
				"default":     defaultTimeoutSeconds,
			},
		},
		"required": []string{"url"},
	}
}
