package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadplatform/road/pkg/broadcast"
	"github.com/roadplatform/road/pkg/broadcast/gochannel"
	"github.com/roadplatform/road/pkg/cmd"
	"github.com/roadplatform/road/pkg/models"
	"github.com/roadplatform/road/pkg/persistence/file"
)

func setupTestApp(t *testing.T, tempDir string) *fiber.App {
	t.Helper()

	logger := slog.Default()
	p := file.NewPersistence(tempDir)

	pub, sub := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
	broadcaster := broadcast.NewBroadcaster(logger, pub, sub)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, broadcaster.Start(ctx))
	t.Cleanup(func() { _ = broadcaster.Close() })

	api := NewAPI(logger, p, cmd.NewRegistry(logger), cmd.NewLLMRegistry(logger, cmd.LLMKeys{}), broadcaster, nil)

	return api.App()
}

func TestAPI_RootEndpoint(t *testing.T) {
	app := setupTestApp(t, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Road API", string(body))
}

func TestAPI_Liveness(t *testing.T) {
	app := setupTestApp(t, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_GetWorkflows_Empty(t *testing.T) {
	app := setupTestApp(t, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/workflows", nil)
	req.Header.Set("Accept", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		Workflows  []models.Workflow `json:"workflows"`
		TotalCount int64             `json:"total_count"`
	}

	err = json.NewDecoder(resp.Body).Decode(&listing)
	require.NoError(t, err)
	assert.Empty(t, listing.Workflows)
	assert.Zero(t, listing.TotalCount)
}

func TestAPI_GetWorkflows_WithData(t *testing.T) {
	tempDir := t.TempDir()
	p := file.NewPersistence(tempDir)

	workflow := &models.Workflow{
		ID:   "wf-1",
		Name: "Log pipeline",
		Nodes: []*models.Node{
			{
				ID:   "a",
				Type: "log",
				Name: "Log step",
				Config: map[string]any{
					"message": "Test message",
				},
			},
		},
	}
	require.NoError(t, p.WorkflowRepository().Save(context.Background(), workflow))

	app := setupTestApp(t, tempDir)

	req := httptest.NewRequest(http.MethodGet, "/workflows", nil)
	req.Header.Set("Accept", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		Workflows  []models.Workflow `json:"workflows"`
		TotalCount int64             `json:"total_count"`
	}

	err = json.NewDecoder(resp.Body).Decode(&listing)
	require.NoError(t, err)
	require.Len(t, listing.Workflows, 1)
	assert.Equal(t, "Log pipeline", listing.Workflows[0].Name)
	assert.Equal(t, int64(1), listing.TotalCount)
}

func TestAPI_PlaygroundProvidersListedWithoutKeys(t *testing.T) {
	app := setupTestApp(t, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/playground/providers", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		Providers []struct {
			ID        string `json:"id"`
			Available bool   `json:"available"`
		} `json:"providers"`
		Total int `json:"total"`
	}

	err = json.NewDecoder(resp.Body).Decode(&listing)
	require.NoError(t, err)
	assert.Equal(t, 3, listing.Total)

	// No API keys configured in tests, so every provider is listed but
	// unavailable.
	for _, provider := range listing.Providers {
		assert.False(t, provider.Available, provider.ID)
	}
}

func TestAPI_NodeTypesIncludeBuiltins(t *testing.T) {
	app := setupTestApp(t, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/node-types", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		NodeTypes []struct {
			ID string `json:"id"`
		} `json:"node_types"`
	}

	err = json.NewDecoder(resp.Body).Decode(&listing)
	require.NoError(t, err)

	ids := make([]string, 0, len(listing.NodeTypes))
	for _, nt := range listing.NodeTypes {
		ids = append(ids, nt.ID)
	}

	assert.Contains(t, ids, "prompt")
	assert.Contains(t, ids, "transform")
	assert.Contains(t, ids, "log")
	assert.Contains(t, ids, "http_request")
}
