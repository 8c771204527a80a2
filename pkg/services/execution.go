package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/roadplatform/road/pkg/engine"
	"github.com/roadplatform/road/pkg/models"
	"github.com/roadplatform/road/pkg/persistence"
	"github.com/roadplatform/road/pkg/state"
)

// ErrExecutionNotFound is returned when an execution is not found.
var ErrExecutionNotFound = persistence.ErrExecutionNotFound

// Execution handles execution business operations: starting runs, cancelling
// them and serving execution state. Live executions are answered from the
// in-memory state store; finished ones from the record store.
type Execution struct {
	persistence persistence.Persistence
	engine      *engine.Engine
	states      *state.Store
	workflows   *Workflow
}

// NewExecution creates a new execution service.
func NewExecution(persistence persistence.Persistence, eng *engine.Engine, states *state.Store, workflows *Workflow) *Execution {
	return &Execution{
		persistence: persistence,
		engine:      eng,
		states:      states,
		workflows:   workflows,
	}
}

// Execute starts a new execution of the workflow and returns its record.
func (e *Execution) Execute(ctx context.Context, workflowID string, input map[string]any) (*models.Execution, error) {
	workflow, err := e.workflows.FetchByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	executionID, err := e.engine.StartExecution(ctx, workflow, input)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGraph, err)
	}

	snap, err := e.states.Get(executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read execution state: %w", err)
	}

	return &snap.Execution, nil
}

// Cancel stops a running execution with the given reason.
func (e *Execution) Cancel(ctx context.Context, executionID, reason string) error {
	err := e.engine.Cancel(executionID, reason)
	if err != nil {
		if errors.Is(err, engine.ErrExecutionNotRunning) {
			// Distinguish "never existed" from "already finished".
			_, getErr := e.Get(ctx, executionID)
			if getErr != nil {
				return getErr
			}

			return ErrExecutionNotRunning
		}

		return fmt.Errorf("failed to cancel execution: %w", err)
	}

	return nil
}

// Get returns the current execution record, preferring live state.
func (e *Execution) Get(ctx context.Context, executionID string) (*models.Execution, error) {
	snap, err := e.states.Get(executionID)
	if err == nil {
		return &snap.Execution, nil
	}

	execution, err := e.persistence.ExecutionRepository().GetExecution(ctx, executionID)
	if err != nil {
		if persistence.IsExecutionNotFound(err) {
			return nil, ErrExecutionNotFound
		}

		return nil, fmt.Errorf("failed to get execution: %w", err)
	}

	return execution, nil
}

// ListNodes returns per-node state for an execution, preferring live state.
func (e *Execution) ListNodes(ctx context.Context, executionID string) ([]*models.NodeExecution, error) {
	snap, err := e.states.Get(executionID)
	if err == nil {
		nodes := make([]*models.NodeExecution, 0, len(snap.NodeExecutions))
		for _, ne := range snap.NodeExecutions {
			node := ne
			nodes = append(nodes, &node)
		}

		sortNodeExecutions(nodes)

		return nodes, nil
	}

	// Fall back to the record store; confirm the execution exists so an
	// unknown id is a 404 rather than an empty list.
	if _, err := e.Get(ctx, executionID); err != nil {
		return nil, err
	}

	nodes, err := e.persistence.ExecutionRepository().ListNodeExecutions(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list node executions: %w", err)
	}

	return nodes, nil
}

// List returns the execution history of one workflow, newest first.
func (e *Execution) List(ctx context.Context, workflowID string, limit, offset int) ([]*models.Execution, error) {
	if _, err := e.workflows.FetchByID(ctx, workflowID); err != nil {
		return nil, err
	}

	executions, err := e.persistence.ExecutionRepository().ListExecutions(ctx, workflowID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return executions, nil
}

func sortNodeExecutions(nodes []*models.NodeExecution) {
	sort.Slice(nodes, func(i, j int) bool {
		// Records created in the same instant order by node id so repeated
		// reads of the same execution always agree.
		if nodes[i].CreatedAt.Equal(nodes[j].CreatedAt) {
			return nodes[i].NodeID < nodes[j].NodeID
		}

		return nodes[i].CreatedAt.Before(nodes[j].CreatedAt)
	})
}
