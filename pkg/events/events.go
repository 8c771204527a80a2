// Package events defines the ephemeral progress events emitted during
// workflow execution. Events are fan-out only and never persisted; an
// unobserved event is simply lost.
package events

import (
	"time"

	"github.com/roadplatform/road/pkg/models"
)

// ProgressType identifies the kind of state transition an event describes.
type ProgressType string

const (
	ExecutionStart    ProgressType = "execution_start"
	NodeUpdate        ProgressType = "node_update"
	ExecutionComplete ProgressType = "execution_complete"
)

// Topic is the broadcast topic all progress events are published on. The
// execution id rides in message metadata so fan-out can filter per run.
const Topic = "road.executions.progress"

// ExecutionIDMetadataKey is the message metadata key carrying the execution id.
const ExecutionIDMetadataKey = "execution_id"

// ProgressEvent describes one execution-level or node-level state transition.
type ProgressEvent struct {
	Type        ProgressType `json:"type"`
	ExecutionID string       `json:"execution_id"`
	WorkflowID  string       `json:"workflow_id,omitempty"`
	NodeID      string       `json:"node_id,omitempty"`
	Status      string       `json:"status"`
	Timestamp   time.Time    `json:"timestamp"`
	Message     string       `json:"message,omitempty"`
}

// NewExecutionStart builds the event emitted when an execution begins dispatch.
func NewExecutionStart(executionID, workflowID string) ProgressEvent {
	return ProgressEvent{
		Type:        ExecutionStart,
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		Status:      string(models.ExecutionStatusRunning),
		Timestamp:   time.Now().UTC(),
	}
}

// NewNodeUpdate builds the event emitted on a node state transition.
func NewNodeUpdate(executionID, workflowID, nodeID string, status models.NodeStatus, message string) ProgressEvent {
	return ProgressEvent{
		Type:        NodeUpdate,
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		NodeID:      nodeID,
		Status:      string(status),
		Timestamp:   time.Now().UTC(),
		Message:     message,
	}
}

// NewExecutionComplete builds the terminal event for an execution. For failed
// runs message carries the terminating node's error so observers subscribed
// mid-run see the failure instead of a silent disconnect.
func NewExecutionComplete(executionID, workflowID string, status models.ExecutionStatus, message string) ProgressEvent {
	return ProgressEvent{
		Type:        ExecutionComplete,
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		Status:      string(status),
		Timestamp:   time.Now().UTC(),
		Message:     message,
	}
}
