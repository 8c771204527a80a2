package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"
)

// Registry maps node types to runner factories. It is constructed explicitly
// and passed to the engine rather than living in package state, so tests can
// supply fakes.
type Registry struct {
	logger    *slog.Logger
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger.With("module", "runner_registry"),
		factories: make(map[string]Factory),
	}
}

// Register adds a factory, replacing any previous factory for the same type.
func (r *Registry) Register(factory Factory) {
	r.factories[factory.ID()] = factory
}

// Create instantiates a runner for nodeType. An unregistered type is a
// node-level dispatch error; the engine fails the run with it.
func (r *Registry) Create(ctx context.Context, nodeType, nodeID string, config map[string]any) (Runner, error) {
	factory, ok := r.factories[nodeType]
	if !ok {
		return nil, fmt.Errorf("node type '%s' not registered", nodeType)
	}

	return factory.Create(ctx, nodeID, config)
}

// ValidateConfig checks a node configuration against the factory's JSON schema.
func (r *Registry) ValidateConfig(nodeType string, config map[string]any) error {
	factory, ok := r.factories[nodeType]
	if !ok {
		return fmt.Errorf("node type '%s' not registered", nodeType)
	}

	schemaJSON, err := json.Marshal(factory.Schema())
	if err != nil {
		return fmt.Errorf("failed to marshal schema for node type '%s': %w", nodeType, err)
	}

	if config == nil {
		config = map[string]any{}
	}

	configJSON, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config for node type '%s': %w", nodeType, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(configJSON),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed for node type '%s': %w", nodeType, err)
	}

	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("invalid config for node type '%s': %s", nodeType, errs[0].String())
		}

		return fmt.Errorf("invalid config for node type '%s'", nodeType)
	}

	return nil
}

// TypeInfo describes one registered node type for the API listing.
type TypeInfo struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
}

// Types returns metadata for every registered node type, sorted by id.
func (r *Registry) Types() []TypeInfo {
	infos := make([]TypeInfo, 0, len(r.factories))
	for _, f := range r.factories {
		infos = append(infos, TypeInfo{
			ID:          f.ID(),
			Name:        f.Name(),
			Description: f.Description(),
			Schema:      f.Schema(),
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })

	return infos
}

// IsRegistered reports whether a factory exists for the node type.
func (r *Registry) IsRegistered(nodeType string) bool {
	_, ok := r.factories[nodeType]

	return ok
}

// HealthCheck reports registry readiness for the health endpoint.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.factories) == 0 {
		return "No node types registered", false
	}

	return fmt.Sprintf("%d node types registered", len(r.factories)), true
}
