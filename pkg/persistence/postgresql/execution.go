package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roadplatform/road/pkg/models"
	"github.com/roadplatform/road/pkg/persistence"
)

// ExecutionRepository handles execution history database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

func (r *ExecutionRepository) CreateExecution(ctx context.Context, execution *models.Execution) error {
	inputJSON, err := json.Marshal(execution.Input)
	if err != nil {
		return fmt.Errorf("failed to marshal input: %w", err)
	}

	outputJSON, err := json.Marshal(execution.Output)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}

	query := `
		INSERT INTO executions (id, workflow_id, status, input, output, error_message, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.Status,
		inputJSON,
		outputJSON,
		execution.ErrorMessage,
		execution.StartedAt,
		execution.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create execution: %w", err)
	}

	return nil
}

func (r *ExecutionRepository) UpdateExecution(ctx context.Context, execution *models.Execution) error {
	outputJSON, err := json.Marshal(execution.Output)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}

	query := `
		UPDATE executions
		SET status = $2, output = $3, error_message = $4, completed_at = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		execution.ID,
		execution.Status,
		outputJSON,
		execution.ErrorMessage,
		execution.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update execution: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError("UpdateExecution", "execution", execution.ID, persistence.ErrExecutionNotFound)
	}

	return nil
}

func (r *ExecutionRepository) GetExecution(ctx context.Context, id string) (*models.Execution, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , status
		  , input
		  , output
		  , error_message
		  , started_at
		  , completed_at
		FROM executions
		WHERE id = $1
	`

	execution, err := scanExecution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetExecution", "execution", id, persistence.ErrExecutionNotFound)
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	return execution, nil
}

func (r *ExecutionRepository) ListExecutions(ctx context.Context, workflowID string, limit, offset int) ([]*models.Execution, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT
			id
		  , workflow_id
		  , status
		  , input
		  , output
		  , error_message
		  , started_at
		  , completed_at
		FROM executions
		WHERE ($1 = '' OR workflow_id = $1)
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func (r *ExecutionRepository) SaveNodeExecution(ctx context.Context, nodeExecution *models.NodeExecution) error {
	inputJSON, err := json.Marshal(nodeExecution.InputData)
	if err != nil {
		return fmt.Errorf("failed to marshal input data: %w", err)
	}

	outputJSON, err := json.Marshal(nodeExecution.OutputData)
	if err != nil {
		return fmt.Errorf("failed to marshal output data: %w", err)
	}

	query := `
		INSERT INTO node_executions (id, execution_id, node_id, node_type, status, input_data, output_data, error_message, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			output_data = EXCLUDED.output_data,
			error_message = EXCLUDED.error_message,
			duration_ms = EXCLUDED.duration_ms
	`

	_, err = r.db.ExecContext(ctx, query,
		nodeExecution.ID,
		nodeExecution.ExecutionID,
		nodeExecution.NodeID,
		nodeExecution.NodeType,
		nodeExecution.Status,
		inputJSON,
		outputJSON,
		nodeExecution.ErrorMessage,
		nodeExecution.DurationMs,
		nodeExecution.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save node execution: %w", err)
	}

	return nil
}

func (r *ExecutionRepository) ListNodeExecutions(ctx context.Context, executionID string) ([]*models.NodeExecution, error) {
	query := `
		SELECT
			id
		  , execution_id
		  , node_id
		  , node_type
		  , status
		  , input_data
		  , output_data
		  , error_message
		  , duration_ms
		  , created_at
		FROM node_executions
		WHERE execution_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query node executions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	nodes := make([]*models.NodeExecution, 0)

	for rows.Next() {
		var (
			node       models.NodeExecution
			inputJSON  []byte
			outputJSON []byte
		)

		err := rows.Scan(
			&node.ID,
			&node.ExecutionID,
			&node.NodeID,
			&node.NodeType,
			&node.Status,
			&inputJSON,
			&outputJSON,
			&node.ErrorMessage,
			&node.DurationMs,
			&node.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node execution: %w", err)
		}

		if err := unmarshalJSONMap(inputJSON, &node.InputData); err != nil {
			return nil, err
		}

		if err := unmarshalJSONMap(outputJSON, &node.OutputData); err != nil {
			return nil, err
		}

		nodes = append(nodes, &node)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating node executions: %w", err)
	}

	return nodes, nil
}

func scanExecution(row rowScanner) (*models.Execution, error) {
	var (
		execution  models.Execution
		inputJSON  []byte
		outputJSON []byte
	)

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.Status,
		&inputJSON,
		&outputJSON,
		&execution.ErrorMessage,
		&execution.StartedAt,
		&execution.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalJSONMap(inputJSON, &execution.Input); err != nil {
		return nil, err
	}

	if err := unmarshalJSONMap(outputJSON, &execution.Output); err != nil {
		return nil, err
	}

	return &execution, nil
}

func unmarshalJSONMap(raw []byte, out *map[string]any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal JSON column: %w", err)
	}

	return nil
}
