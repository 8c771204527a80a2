package file

import (
	"context"
	"path"
	"sort"
	"strings"

	"github.com/roadplatform/road/pkg/models"
	"github.com/roadplatform/road/pkg/persistence"
)

// WorkflowRepository handles workflow-related file operations.
type WorkflowRepository struct {
	root string
}

func (wr *WorkflowRepository) dir() string {
	return path.Join(wr.root, "workflows")
}

// ListWorkflows returns paginated and sorted workflows with in-memory operations.
func (wr *WorkflowRepository) ListWorkflows(ctx context.Context, opts persistence.ListWorkflowsOptions) (*persistence.WorkflowListResult, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	if opts.SortBy == "" {
		opts.SortBy = "created_at"
	}

	if opts.SortOrder == "" {
		opts.SortOrder = "desc"
	}

	allowedSorts := map[string]bool{
		"created_at": true,
		"updated_at": true,
		"name":       true,
	}
	if !allowedSorts[opts.SortBy] {
		return nil, persistence.ErrInvalidSortField
	}

	names, err := listJSONFiles(wr.dir())
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.Workflow, 0, len(names))

	for _, name := range names {
		var workflow models.Workflow
		if err := readDoc(path.Join(wr.dir(), name), &workflow, persistence.ErrWorkflowNotFound); err != nil {
			return nil, err
		}

		workflows = append(workflows, &workflow)
	}

	sortWorkflows(workflows, opts.SortBy, opts.SortOrder)

	total := int64(len(workflows))

	start := opts.Offset
	if start > len(workflows) {
		start = len(workflows)
	}

	end := start + opts.Limit
	if end > len(workflows) {
		end = len(workflows)
	}

	return &persistence.WorkflowListResult{
		Workflows:   workflows[start:end],
		TotalCount:  total,
		HasNextPage: int64(end) < total,
	}, nil
}

// GetByID fetches one workflow.
func (wr *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	var workflow models.Workflow
	if err := readDoc(path.Join(wr.dir(), id+".json"), &workflow, persistence.ErrWorkflowNotFound); err != nil {
		return nil, persistence.NewStoreError("GetByID", "workflow", id, err)
	}

	return &workflow, nil
}

// Save creates or replaces a workflow document.
func (wr *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	if err := writeDoc(path.Join(wr.dir(), workflow.ID+".json"), workflow); err != nil {
		return persistence.NewStoreError("Save", "workflow", workflow.ID, err)
	}

	return nil
}

// Delete removes a workflow document.
func (wr *WorkflowRepository) Delete(ctx context.Context, id string) error {
	if err := removeDoc(path.Join(wr.dir(), id+".json"), persistence.ErrWorkflowNotFound); err != nil {
		return persistence.NewStoreError("Delete", "workflow", id, err)
	}

	return nil
}

func sortWorkflows(workflows []*models.Workflow, sortBy, sortOrder string) {
	less := func(i, j int) bool {
		switch sortBy {
		case "name":
			return strings.ToLower(workflows[i].Name) < strings.ToLower(workflows[j].Name)
		case "updated_at":
			return workflows[i].UpdatedAt.Before(workflows[j].UpdatedAt)
		default:
			return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
		}
	}

	if sortOrder == "desc" {
		sort.Slice(workflows, func(i, j int) bool { return less(j, i) })

		return
	}

	sort.Slice(workflows, less)
}
