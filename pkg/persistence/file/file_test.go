package file

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadplatform/road/pkg/models"
	"github.com/roadplatform/road/pkg/persistence"
)

func newTestPersistence(t *testing.T) *Persistence {
	t.Helper()

	return NewPersistence(t.TempDir())
}

func sampleWorkflow(id, name string, createdAt time.Time) *models.Workflow {
	return &models.Workflow{
		ID:   id,
		Name: name,
		Nodes: []*models.Node{
			{ID: "a", Type: "log", Name: "a"},
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestWorkflowRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestPersistence(t).WorkflowRepository()

	w := sampleWorkflow("wf-1", "ingest pipeline", time.Now().UTC())
	require.NoError(t, repo.Save(ctx, w))

	got, err := repo.GetByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "ingest pipeline", got.Name)
	require.Len(t, got.Nodes, 1)
	assert.Equal(t, "log", got.Nodes[0].Type)
}

func TestWorkflowRepository_GetMissing(t *testing.T) {
	repo := newTestPersistence(t).WorkflowRepository()

	_, err := repo.GetByID(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestWorkflowRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := newTestPersistence(t).WorkflowRepository()

	require.NoError(t, repo.Save(ctx, sampleWorkflow("wf-1", "to delete", time.Now().UTC())))
	require.NoError(t, repo.Delete(ctx, "wf-1"))

	_, err := repo.GetByID(ctx, "wf-1")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

	err = repo.Delete(ctx, "wf-1")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestWorkflowRepository_ListSortsAndPaginates(t *testing.T) {
	ctx := context.Background()
	repo := newTestPersistence(t).WorkflowRepository()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	names := []string{"charlie", "alpha", "bravo"}

	for i, name := range names {
		w := sampleWorkflow(fmt.Sprintf("wf-%d", i), name, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, repo.Save(ctx, w))
	}

	result, err := repo.ListWorkflows(ctx, persistence.ListWorkflowsOptions{
		SortBy:    "name",
		SortOrder: "asc",
	})
	require.NoError(t, err)
	require.Len(t, result.Workflows, 3)
	assert.Equal(t, int64(3), result.TotalCount)
	assert.False(t, result.HasNextPage)
	assert.Equal(t, "alpha", result.Workflows[0].Name)
	assert.Equal(t, "bravo", result.Workflows[1].Name)
	assert.Equal(t, "charlie", result.Workflows[2].Name)

	// Newest first is the default ordering.
	result, err = repo.ListWorkflows(ctx, persistence.ListWorkflowsOptions{})
	require.NoError(t, err)
	assert.Equal(t, "bravo", result.Workflows[0].Name)

	// Pagination reports a next page while more rows remain.
	result, err = repo.ListWorkflows(ctx, persistence.ListWorkflowsOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, result.Workflows, 2)
	assert.True(t, result.HasNextPage)

	result, err = repo.ListWorkflows(ctx, persistence.ListWorkflowsOptions{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, result.Workflows, 1)
	assert.False(t, result.HasNextPage)
}

func TestWorkflowRepository_ListRejectsUnknownSortField(t *testing.T) {
	repo := newTestPersistence(t).WorkflowRepository()

	_, err := repo.ListWorkflows(context.Background(), persistence.ListWorkflowsOptions{SortBy: "created_by"})
	require.Error(t, err)
	assert.ErrorIs(t, err, persistence.ErrInvalidSortField)
}

func TestExecutionRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestPersistence(t).ExecutionRepository()

	started := time.Now().UTC().Truncate(time.Millisecond)
	execution := &models.Execution{
		ID:         "exec-1",
		WorkflowID: "wf-1",
		Status:     models.ExecutionStatusPending,
		Input:      map[string]any{"q": "hello"},
		StartedAt:  started,
	}

	require.NoError(t, repo.CreateExecution(ctx, execution))

	execution.Status = models.ExecutionStatusCompleted
	execution.Output = map[string]any{"answer": "done"}
	require.NoError(t, repo.UpdateExecution(ctx, execution))

	got, err := repo.GetExecution(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, got.Status)
	assert.Equal(t, "done", got.Output["answer"])
	assert.Equal(t, "hello", got.Input["q"])
}

func TestExecutionRepository_GetMissing(t *testing.T) {
	repo := newTestPersistence(t).ExecutionRepository()

	_, err := repo.GetExecution(context.Background(), "exec-nope")
	assert.ErrorIs(t, err, persistence.ErrExecutionNotFound)
}

func TestExecutionRepository_ListFiltersByWorkflow(t *testing.T) {
	ctx := context.Background()
	repo := newTestPersistence(t).ExecutionRepository()

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	for i := range 3 {
		workflowID := "wf-a"
		if i == 2 {
			workflowID = "wf-b"
		}

		require.NoError(t, repo.CreateExecution(ctx, &models.Execution{
			ID:         fmt.Sprintf("exec-%d", i),
			WorkflowID: workflowID,
			Status:     models.ExecutionStatusCompleted,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := repo.ListExecutions(ctx, "", 20, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	// Most recent start first.
	assert.Equal(t, "exec-2", all[0].ID)

	onlyA, err := repo.ListExecutions(ctx, "wf-a", 20, 0)
	require.NoError(t, err)
	require.Len(t, onlyA, 2)

	for _, e := range onlyA {
		assert.Equal(t, "wf-a", e.WorkflowID)
	}
}

func TestExecutionRepository_NodeHistory(t *testing.T) {
	ctx := context.Background()
	repo := newTestPersistence(t).ExecutionRepository()

	require.NoError(t, repo.CreateExecution(ctx, &models.Execution{
		ID:         "exec-1",
		WorkflowID: "wf-1",
		Status:     models.ExecutionStatusRunning,
		StartedAt:  time.Now().UTC(),
	}))

	record := &models.NodeExecution{
		ID:          "ne-1",
		ExecutionID: "exec-1",
		NodeID:      "a",
		Status:      models.NodeStatusRunning,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, repo.SaveNodeExecution(ctx, record))

	// Saving the same record id again replaces it in place.
	record.Status = models.NodeStatusSuccess
	record.OutputData = map[string]any{"a": "done"}
	require.NoError(t, repo.SaveNodeExecution(ctx, record))

	require.NoError(t, repo.SaveNodeExecution(ctx, &models.NodeExecution{
		ID:          "ne-2",
		ExecutionID: "exec-1",
		NodeID:      "b",
		Status:      models.NodeStatusRunning,
		CreatedAt:   time.Now().UTC(),
	}))

	nodes, err := repo.ListNodeExecutions(ctx, "exec-1")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, models.NodeStatusSuccess, nodes[0].Status)
	assert.Equal(t, "done", nodes[0].OutputData["a"])

	// The node history file must not leak into execution listings.
	all, err := repo.ListExecutions(ctx, "", 20, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestExecutionRepository_NodeHistoryEmptyForUnknownExecution(t *testing.T) {
	repo := newTestPersistence(t).ExecutionRepository()

	nodes, err := repo.ListNodeExecutions(context.Background(), "exec-nope")
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestPromptRepository_Filtering(t *testing.T) {
	ctx := context.Background()
	repo := newTestPersistence(t).PromptRepository()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	prompts := []*models.Prompt{
		{ID: "p1", Name: "RAG answerer", Content: "x", Tags: []string{"rag"}, CreatedAt: base},
		{ID: "p2", Name: "Summarizer", Description: "compact answers", Content: "x", Tags: []string{"summary"}, CreatedAt: base.Add(time.Hour)},
		{ID: "p3", Name: "Classifier", Content: "x", CreatedAt: base.Add(2 * time.Hour)},
	}

	for _, p := range prompts {
		require.NoError(t, repo.SavePrompt(ctx, p))
	}

	all, err := repo.ListPrompts(ctx, "", "", 20, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "p3", all[0].ID) // newest first

	byQuery, err := repo.ListPrompts(ctx, "rag", "", 20, 0)
	require.NoError(t, err)
	require.Len(t, byQuery, 1)
	assert.Equal(t, "p1", byQuery[0].ID)

	// Query matches descriptions too, case-insensitively.
	byDescription, err := repo.ListPrompts(ctx, "COMPACT", "", 20, 0)
	require.NoError(t, err)
	require.Len(t, byDescription, 1)
	assert.Equal(t, "p2", byDescription[0].ID)

	byTag, err := repo.ListPrompts(ctx, "", "summary", 20, 0)
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	assert.Equal(t, "p2", byTag[0].ID)

	_, err = repo.GetPrompt(ctx, "p-nope")
	assert.ErrorIs(t, err, persistence.ErrPromptNotFound)

	require.NoError(t, repo.DeletePrompt(ctx, "p1"))
	assert.ErrorIs(t, repo.DeletePrompt(ctx, "p1"), persistence.ErrPromptNotFound)
}

func TestConversationRepository_KeyedBySession(t *testing.T) {
	ctx := context.Background()
	repo := newTestPersistence(t).ConversationRepository()

	conversation := &models.Conversation{
		ID:            "c1",
		SessionID:     "session-1",
		ModelName:     "gpt-4o",
		ModelProvider: "openai",
		Messages: []models.ChatMessage{
			{Role: "user", Content: "hello"},
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	require.NoError(t, repo.SaveConversation(ctx, conversation))

	got, err := repo.GetConversation(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ID)
	require.Len(t, got.Messages, 1)

	// Saving with the same session overwrites the stored history.
	conversation.Messages = append(conversation.Messages, models.ChatMessage{Role: "assistant", Content: "hi"})
	require.NoError(t, repo.SaveConversation(ctx, conversation))

	got, err = repo.GetConversation(ctx, "session-1")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)

	_, err = repo.GetConversation(ctx, "session-nope")
	assert.ErrorIs(t, err, persistence.ErrConversationNotFound)

	require.NoError(t, repo.DeleteConversation(ctx, "session-1"))
	_, err = repo.GetConversation(ctx, "session-1")
	assert.ErrorIs(t, err, persistence.ErrConversationNotFound)
}
