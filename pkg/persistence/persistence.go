// Package persistence provides the data storage abstraction for workflows,
// executions, prompts and conversations.
package persistence

import (
	"context"

	"github.com/roadplatform/road/pkg/models"
)

// Persistence is the record store boundary. The engine treats it as
// eventually consistent with in-memory state: terminal transitions are
// written through, but failures are logged rather than failing the run.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	PromptRepository() PromptRepository
	ConversationRepository() ConversationRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ListWorkflowsOptions controls pagination and sorting for workflow listings.
type ListWorkflowsOptions struct {
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

// WorkflowListResult is one page of workflows plus paging metadata.
type WorkflowListResult struct {
	Workflows   []*models.Workflow
	TotalCount  int64
	HasNextPage bool
}

// WorkflowRepository stores workflow definitions.
type WorkflowRepository interface {
	ListWorkflows(ctx context.Context, opts ListWorkflowsOptions) (*WorkflowListResult, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository stores execution history: one record per execution and
// an append-style node history keyed by (execution id, node id).
type ExecutionRepository interface {
	CreateExecution(ctx context.Context, execution *models.Execution) error
	UpdateExecution(ctx context.Context, execution *models.Execution) error
	GetExecution(ctx context.Context, id string) (*models.Execution, error)
	ListExecutions(ctx context.Context, workflowID string, limit, offset int) ([]*models.Execution, error)
	SaveNodeExecution(ctx context.Context, nodeExecution *models.NodeExecution) error
	ListNodeExecutions(ctx context.Context, executionID string) ([]*models.NodeExecution, error)
}

// PromptRepository stores versioned prompt templates.
type PromptRepository interface {
	ListPrompts(ctx context.Context, query string, tag string, limit, offset int) ([]*models.Prompt, error)
	GetPrompt(ctx context.Context, id string) (*models.Prompt, error)
	SavePrompt(ctx context.Context, prompt *models.Prompt) error
	DeletePrompt(ctx context.Context, id string) error
}

// ConversationRepository stores playground chat histories keyed by session.
type ConversationRepository interface {
	ListConversations(ctx context.Context, limit, offset int) ([]*models.Conversation, error)
	GetConversation(ctx context.Context, sessionID string) (*models.Conversation, error)
	SaveConversation(ctx context.Context, conversation *models.Conversation) error
	DeleteConversation(ctx context.Context, sessionID string) error
}
