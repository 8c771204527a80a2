package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_PlainString(t *testing.T) {
	result, err := Render("hello {{ .name }}", map[string]any{"name": "world"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", result)
}

func TestRender_JSONObject(t *testing.T) {
	result, err := Render(`{"count": {{ .n }}, "ok": true}`, map[string]any{"n": 2})
	require.NoError(t, err)

	obj, ok := result.(map[string]any)
	require.True(t, ok)
	assert.InEpsilon(t, 2.0, obj["count"], 0.001)
	assert.Equal(t, true, obj["ok"])
}

func TestRender_JSONArray(t *testing.T) {
	result, err := Render(`[1, 2, 3]`, nil)
	require.NoError(t, err)

	arr, ok := result.([]any)
	require.True(t, ok)
	assert.Len(t, arr, 3)
}

func TestRender_Number(t *testing.T) {
	result, err := Render("{{ .n }}", map[string]any{"n": 42})
	require.NoError(t, err)
	assert.InEpsilon(t, 42.0, result, 0.001)
}

func TestRender_Bool(t *testing.T) {
	result, err := Render("{{ .flag }}", map[string]any{"flag": false})
	require.NoError(t, err)
	assert.Equal(t, false, result)
}

func TestRender_ParseError(t *testing.T) {
	_, err := Render("{{ .broken", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse template")
}

func TestRender_InvalidJSON(t *testing.T) {
	_, err := Render(`{"broken": }`, nil)
	require.Error(t, err)
}

func TestRenderWithInput_Scope(t *testing.T) {
	result, err := RenderWithInput(
		"{{ .execution.id }}:{{ .input.value }}",
		"exec-123", "wf-1",
		map[string]any{"value": "v"},
	)
	require.NoError(t, err)
	assert.Equal(t, "exec-123:v", result)
}
