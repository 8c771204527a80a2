package file

import (
	"context"
	"path"
	"sort"
	"strings"

	"github.com/roadplatform/road/pkg/models"
	"github.com/roadplatform/road/pkg/persistence"
)

// PromptRepository handles prompt template file operations.
type PromptRepository struct {
	root string
}

func (pr *PromptRepository) dir() string {
	return path.Join(pr.root, "prompts")
}

// ListPrompts filters by a case-insensitive name/description query and an
// exact tag match, newest first.
func (pr *PromptRepository) ListPrompts(ctx context.Context, query string, tag string, limit, offset int) ([]*models.Prompt, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	names, err := listJSONFiles(pr.dir())
	if err != nil {
		return nil, err
	}

	prompts := make([]*models.Prompt, 0, len(names))

	for _, name := range names {
		var prompt models.Prompt
		if err := readDoc(path.Join(pr.dir(), name), &prompt, persistence.ErrPromptNotFound); err != nil {
			return nil, err
		}

		if !matchesPrompt(&prompt, query, tag) {
			continue
		}

		prompts = append(prompts, &prompt)
	}

	sort.Slice(prompts, func(i, j int) bool {
		return prompts[i].CreatedAt.After(prompts[j].CreatedAt)
	})

	start := offset
	if start > len(prompts) {
		start = len(prompts)
	}

	end := start + limit
	if end > len(prompts) {
		end = len(prompts)
	}

	return prompts[start:end], nil
}

func (pr *PromptRepository) GetPrompt(ctx context.Context, id string) (*models.Prompt, error) {
	var prompt models.Prompt
	if err := readDoc(path.Join(pr.dir(), id+".json"), &prompt, persistence.ErrPromptNotFound); err != nil {
		return nil, persistence.NewStoreError("GetPrompt", "prompt", id, err)
	}

	return &prompt, nil
}

func (pr *PromptRepository) SavePrompt(ctx context.Context, prompt *models.Prompt) error {
	if err := writeDoc(path.Join(pr.dir(), prompt.ID+".json"), prompt); err != nil {
		return persistence.NewStoreError("SavePrompt", "prompt", prompt.ID, err)
	}

	return nil
}

func (pr *PromptRepository) DeletePrompt(ctx context.Context, id string) error {
	if err := removeDoc(path.Join(pr.dir(), id+".json"), persistence.ErrPromptNotFound); err != nil {
		return persistence.NewStoreError("DeletePrompt", "prompt", id, err)
	}

	return nil
}

func matchesPrompt(prompt *models.Prompt, query, tag string) bool {
	if query != "" {
		q := strings.ToLower(query)
		if !strings.Contains(strings.ToLower(prompt.Name), q) &&
			!strings.Contains(strings.ToLower(prompt.Description), q) {
			return false
		}
	}

	if tag != "" {
		found := false

		for _, t := range prompt.Tags {
			if t == tag {
				found = true

				break
			}
		}

		if !found {
			return false
		}
	}

	return true
}
