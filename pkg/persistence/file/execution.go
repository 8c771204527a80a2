package file

import (
	"context"
	"path"
	"sort"
	"strings"

	"github.com/roadplatform/road/pkg/models"
	"github.com/roadplatform/road/pkg/persistence"
)

// ExecutionRepository handles execution history file operations. Each
// execution is one document; its node history lives in a sibling
// "<id>.nodes.json" document holding the full slice.
type ExecutionRepository struct {
	root string
}

func (er *ExecutionRepository) dir() string {
	return path.Join(er.root, "executions")
}

func (er *ExecutionRepository) executionPath(id string) string {
	return path.Join(er.dir(), id+".json")
}

func (er *ExecutionRepository) nodesPath(executionID string) string {
	return path.Join(er.dir(), executionID+".nodes.json")
}

func (er *ExecutionRepository) CreateExecution(ctx context.Context, execution *models.Execution) error {
	if err := writeDoc(er.executionPath(execution.ID), execution); err != nil {
		return persistence.NewStoreError("CreateExecution", "execution", execution.ID, err)
	}

	return nil
}

func (er *ExecutionRepository) UpdateExecution(ctx context.Context, execution *models.Execution) error {
	if err := writeDoc(er.executionPath(execution.ID), execution); err != nil {
		return persistence.NewStoreError("UpdateExecution", "execution", execution.ID, err)
	}

	return nil
}

func (er *ExecutionRepository) GetExecution(ctx context.Context, id string) (*models.Execution, error) {
	var execution models.Execution
	if err := readDoc(er.executionPath(id), &execution, persistence.ErrExecutionNotFound); err != nil {
		return nil, persistence.NewStoreError("GetExecution", "execution", id, err)
	}

	return &execution, nil
}

// ListExecutions returns executions sorted newest first, optionally filtered
// by workflow.
func (er *ExecutionRepository) ListExecutions(ctx context.Context, workflowID string, limit, offset int) ([]*models.Execution, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	names, err := listJSONFiles(er.dir())
	if err != nil {
		return nil, err
	}

	executions := make([]*models.Execution, 0, len(names))

	for _, name := range names {
		if strings.HasSuffix(name, ".nodes.json") {
			continue
		}

		var execution models.Execution
		if err := readDoc(path.Join(er.dir(), name), &execution, persistence.ErrExecutionNotFound); err != nil {
			return nil, err
		}

		if workflowID != "" && execution.WorkflowID != workflowID {
			continue
		}

		executions = append(executions, &execution)
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	start := offset
	if start > len(executions) {
		start = len(executions)
	}

	end := start + limit
	if end > len(executions) {
		end = len(executions)
	}

	return executions[start:end], nil
}

// SaveNodeExecution appends or replaces the record for the node within the
// execution's node history document.
func (er *ExecutionRepository) SaveNodeExecution(ctx context.Context, nodeExecution *models.NodeExecution) error {
	nodes, err := er.readNodes(nodeExecution.ExecutionID)
	if err != nil {
		return persistence.NewStoreError("SaveNodeExecution", "execution", nodeExecution.ExecutionID, err)
	}

	replaced := false

	for i, existing := range nodes {
		if existing.ID == nodeExecution.ID {
			nodes[i] = nodeExecution
			replaced = true

			break
		}
	}

	if !replaced {
		nodes = append(nodes, nodeExecution)
	}

	if err := writeDoc(er.nodesPath(nodeExecution.ExecutionID), nodes); err != nil {
		return persistence.NewStoreError("SaveNodeExecution", "execution", nodeExecution.ExecutionID, err)
	}

	return nil
}

// ListNodeExecutions returns the node history in insertion order.
func (er *ExecutionRepository) ListNodeExecutions(ctx context.Context, executionID string) ([]*models.NodeExecution, error) {
	nodes, err := er.readNodes(executionID)
	if err != nil {
		return nil, persistence.NewStoreError("ListNodeExecutions", "execution", executionID, err)
	}

	return nodes, nil
}

func (er *ExecutionRepository) readNodes(executionID string) ([]*models.NodeExecution, error) {
	var nodes []*models.NodeExecution

	err := readDoc(er.nodesPath(executionID), &nodes, persistence.ErrExecutionNotFound)
	if err != nil {
		if persistence.IsExecutionNotFound(err) {
			return []*models.NodeExecution{}, nil
		}

		return nil, err
	}

	return nodes, nil
}
