// Package runner defines the contract between the execution engine and the
// pluggable units of work behind each node type.
package runner

import "context"

// Runner performs the unit of work for one node. Invoke may block arbitrarily;
// the engine never holds execution-wide locks while awaiting it.
type Runner interface {
	Invoke(ctx context.Context, input map[string]any) (map[string]any, error)
}

// Factory creates runner instances for a node type and describes how the node
// is configured.
type Factory interface {
	// Create builds a runner bound to one workflow node and its configuration.
	Create(ctx context.Context, nodeID string, config map[string]any) (Runner, error)

	// ID returns the unique node type identifier (e.g. "prompt").
	ID() string

	// Name returns the human-readable name for this node type.
	Name() string

	// Description returns a description of what this node does.
	Description() string

	// Schema returns the JSON schema for configuring this node type.
	Schema() map[string]any
}
