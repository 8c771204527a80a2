// Package file provides a filesystem-backed persistence implementation, used
// for development and tests. Records are stored as one JSON document per
// entity under the configured root directory.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/roadplatform/road/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface on the file system.
type Persistence struct {
	root             string
	workflowRepo     *WorkflowRepository
	executionRepo    *ExecutionRepository
	promptRepo       *PromptRepository
	conversationRepo *ConversationRepository
}

// NewPersistence creates a persistence layer rooted at the given directory.
// A "file://" prefix on root is accepted and stripped.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:             cleanRoot,
		workflowRepo:     &WorkflowRepository{root: cleanRoot},
		executionRepo:    &ExecutionRepository{root: cleanRoot},
		promptRepo:       &PromptRepository{root: cleanRoot},
		conversationRepo: &ConversationRepository{root: cleanRoot},
	}
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return fp.executionRepo
}

func (fp *Persistence) PromptRepository() persistence.PromptRepository {
	return fp.promptRepo
}

func (fp *Persistence) ConversationRepository() persistence.ConversationRepository {
	return fp.conversationRepo
}

// HealthCheck verifies the root directory exists, creating it if missing.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	return os.MkdirAll(fp.root, 0o755)
}

// Close performs any necessary cleanup. Nothing to clean up for files.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}
