// Package httprequest provides the outbound HTTP request node for workflow graph execution.
package httprequest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/roadplatform/road/pkg/template"
)

const defaultTimeoutSeconds = 30

// HTTPRequestNode performs one HTTP call per invocation.
type HTTPRequestNode struct {
	id     string
	config Config
	client *http.Client
}

// Config defines the configuration for HTTP request nodes.
type Config struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body,omitempty"`
	Timeout int               `json:"timeout"`
}

// NewHTTPRequestNode creates a new HTTP request node.
func NewHTTPRequestNode(id string, config map[string]any) (*HTTPRequestNode, error) {
	cfg := Config{
		Method:  http.MethodGet,
		Headers: make(map[string]string),
		Timeout: defaultTimeoutSeconds,
	}

	url, ok := config["url"].(string)
	if !ok {
		return nil, errors.New("missing required field 'url'")
	}

	cfg.URL = url

	if method, ok := config["method"].(string); ok {
		cfg.Method = strings.ToUpper(method)
	}

	if body, ok := config["body"].(string); ok {
		cfg.Body = body
	}

	if timeout, ok := config["timeout"].(float64); ok && timeout > 0 {
		cfg.Timeout = int(timeout)
	}

	if headers, ok := config["headers"].(map[string]any); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				cfg.Headers[k] = s
			}
		}
	}

	return &HTTPRequestNode{
		id:     id,
		config: cfg,
		client: &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
	}, nil
}

// Invoke renders the URL and body templates against the input, performs the
// request and returns status, headers and the (JSON-decoded when possible)
// response body.
func (n *HTTPRequestNode) Invoke(ctx context.Context, input map[string]any) (map[string]any, error) {
	scope := map[string]any{"input": input}

	renderedURL, err := template.Render(n.config.URL, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to render url template: %w", err)
	}

	var bodyReader io.Reader

	if n.config.Body != "" {
		renderedBody, err := template.Render(n.config.Body, scope)
		if err != nil {
			return nil, fmt.Errorf("failed to render body template: %w", err)
		}

		raw, err := json.Marshal(renderedBody)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}

		bodyReader = strings.NewReader(string(raw))
	}

	req, err := http.NewRequestWithContext(ctx, n.config.Method, fmt.Sprintf("%v", renderedURL), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for k, v := range n.config.Headers {
		req.Header.Set(k, v)
	}

	if bodyReader != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("request returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var body any = string(raw)

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err == nil {
		body = decoded
	}

	headers := make(map[string]any, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"headers":     headers,
		"body":        body,
	}, nil
}
