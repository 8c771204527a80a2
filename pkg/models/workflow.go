// Package models defines the core domain models for graph-based workflow execution.
package models

import "time"

// Workflow is a directed graph of processing nodes connected by edges.
type Workflow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description"`
	Nodes       []*Node        `json:"nodes"`
	Edges       []*Edge        `json:"edges"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedBy   string         `json:"created_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Node is a single unit of work in a workflow graph. Position fields exist for
// the canvas UI only and are ignored by the engine.
type Node struct {
	ID        string         `json:"id"         validate:"required"`
	Type      string         `json:"type"       validate:"required"`
	Name      string         `json:"name"`
	Config    map[string]any `json:"config"`
	PositionX float64        `json:"position_x"`
	PositionY float64        `json:"position_y"`
}

// Edge is a directed dependency between two nodes. Condition is an optional
// template expression evaluated against the source node's output; an empty
// condition is always satisfied.
type Edge struct {
	ID        string `json:"id"`
	Source    string `json:"source"    validate:"required"`
	Target    string `json:"target"    validate:"required"`
	Condition string `json:"condition,omitempty"`
	Label     string `json:"label,omitempty"`
}

// NodeByID returns the node with the given id, if present.
func (w *Workflow) NodeByID(id string) (*Node, bool) {
	for _, n := range w.Nodes {
		if n.ID == id {
			return n, true
		}
	}

	return nil, false
}
