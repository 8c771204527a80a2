package llm

import (
	"fmt"
	"log/slog"
	"sort"
)

// Registry maps provider ids to providers. Like the runner registry it is
// constructed explicitly and handed to the services layer, so tests can
// supply fakes.
type Registry struct {
	logger    *slog.Logger
	providers map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger.With("module", "llm_registry"),
		providers: make(map[string]Provider),
	}
}

// Register adds a provider, replacing any previous provider with the same id.
func (r *Registry) Register(provider Provider) {
	r.providers[provider.ID()] = provider
}

// Provider returns the provider for the given id.
func (r *Registry) Provider(id string) (Provider, error) {
	provider, ok := r.providers[id]
	if !ok {
		return nil, fmt.Errorf("llm provider '%s' not registered", id)
	}

	return provider, nil
}

// ProviderInfo describes one registered provider for the API listing.
type ProviderInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
}

// Providers returns metadata for every registered provider, sorted by id.
func (r *Registry) Providers() []ProviderInfo {
	infos := make([]ProviderInfo, 0, len(r.providers))
	for _, p := range r.providers {
		infos = append(infos, ProviderInfo{
			ID:          p.ID(),
			Name:        p.Name(),
			Description: p.Description(),
			Available:   p.Available(),
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })

	return infos
}

// Models returns every model of every registered provider, grouped by
// provider id.
func (r *Registry) Models() []ModelInfo {
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	var models []ModelInfo
	for _, id := range ids {
		models = append(models, r.providers[id].Models()...)
	}

	return models
}

// IsRegistered reports whether a provider exists for the id.
func (r *Registry) IsRegistered(id string) bool {
	_, ok := r.providers[id]

	return ok
}
