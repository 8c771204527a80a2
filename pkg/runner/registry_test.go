package runner

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct{}

func (fakeRunner) Invoke(_ context.Context, input map[string]any) (map[string]any, error) {
	return input, nil
}

type fakeFactory struct {
	id     string
	schema map[string]any
}

func (f *fakeFactory) Create(context.Context, string, map[string]any) (Runner, error) {
	return fakeRunner{}, nil
}

func (f *fakeFactory) ID() string          { return f.id }
func (f *fakeFactory) Name() string        { return f.id }
func (f *fakeFactory) Description() string { return "fake" }
func (f *fakeFactory) Schema() map[string]any {
	if f.schema != nil {
		return f.schema
	}

	return map[string]any{"type": "object"}
}

func newTestRegistry(factories ...Factory) *Registry {
	r := NewRegistry(slog.Default())
	for _, f := range factories {
		r.Register(f)
	}

	return r
}

func TestRegistry_CreateUnknownType(t *testing.T) {
	r := newTestRegistry()

	_, err := r.Create(context.Background(), "mystery", "n1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node type 'mystery' not registered")
}

func TestRegistry_Create(t *testing.T) {
	r := newTestRegistry(&fakeFactory{id: "fake"})

	runner, err := r.Create(context.Background(), "fake", "n1", nil)
	require.NoError(t, err)
	assert.NotNil(t, runner)
}

func TestRegistry_ValidateConfig(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{"type": "string"},
		},
		"required": []string{"url"},
	}

	r := newTestRegistry(&fakeFactory{id: "fake", schema: schema})

	require.NoError(t, r.ValidateConfig("fake", map[string]any{"url": "http://example.com"}))

	err := r.ValidateConfig("fake", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config for node type 'fake'")

	err = r.ValidateConfig("fake", map[string]any{"url": 12})
	require.Error(t, err)

	err = r.ValidateConfig("mystery", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestRegistry_TypesSortedByID(t *testing.T) {
	r := newTestRegistry(
		&fakeFactory{id: "zeta"},
		&fakeFactory{id: "alpha"},
		&fakeFactory{id: "mid"},
	)

	infos := r.Types()
	require.Len(t, infos, 3)
	assert.Equal(t, "alpha", infos[0].ID)
	assert.Equal(t, "mid", infos[1].ID)
	assert.Equal(t, "zeta", infos[2].ID)
}

func TestRegistry_IsRegistered(t *testing.T) {
	r := newTestRegistry(&fakeFactory{id: "fake"})

	assert.True(t, r.IsRegistered("fake"))
	assert.False(t, r.IsRegistered("other"))
}

func TestRegistry_HealthCheck(t *testing.T) {
	empty := newTestRegistry()
	msg, ok := empty.HealthCheck()
	assert.False(t, ok)
	assert.Equal(t, "No node types registered", msg)

	r := newTestRegistry(&fakeFactory{id: "fake"})
	msg, ok = r.HealthCheck()
	assert.True(t, ok)
	assert.Contains(t, msg, "1 node types registered")
}
