package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadplatform/road/pkg/models"
)

func newExecution(id string) models.Execution {
	return models.Execution{
		ID:         id,
		WorkflowID: "wf-1",
		Status:     models.ExecutionStatusPending,
		Input:      map[string]any{"k": "v"},
		StartedAt:  time.Now().UTC(),
	}
}

func TestStore_GetUnknown(t *testing.T) {
	s := NewStore()

	_, err := s.Get("exec-missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExecutionNotFound)
}

func TestStore_SnapshotIsDeepCopy(t *testing.T) {
	s := NewStore()
	s.Create(newExecution("exec-1"))

	snap, err := s.Get("exec-1")
	require.NoError(t, err)

	// Mutating the snapshot must not leak into the store.
	snap.Execution.Input["k"] = "mutated"
	snap.Execution.Status = models.ExecutionStatusFailed

	again, err := s.Get("exec-1")
	require.NoError(t, err)
	assert.Equal(t, "v", again.Execution.Input["k"])
	assert.Equal(t, models.ExecutionStatusPending, again.Execution.Status)
}

func TestStore_SnapshotCopiesNestedPayloads(t *testing.T) {
	s := NewStore()

	execution := newExecution("exec-1")
	execution.Input = map[string]any{
		"config": map[string]any{"retries": 3},
		"items":  []any{map[string]any{"id": "first"}},
	}
	s.Create(execution)

	snap, err := s.Get("exec-1")
	require.NoError(t, err)

	// Mutating containers below the top level must not leak into the store
	// either.
	snap.Execution.Input["config"].(map[string]any)["retries"] = 99
	snap.Execution.Input["items"].([]any)[0].(map[string]any)["id"] = "mutated"

	again, err := s.Get("exec-1")
	require.NoError(t, err)
	assert.Equal(t, 3, again.Execution.Input["config"].(map[string]any)["retries"])
	assert.Equal(t, "first", again.Execution.Input["items"].([]any)[0].(map[string]any)["id"])
}

func TestStore_ExecutionTransitions(t *testing.T) {
	s := NewStore()
	s.Create(newExecution("exec-1"))

	require.NoError(t, s.ApplyExecutionTransition("exec-1", models.ExecutionStatusRunning, nil, ""))

	output := map[string]any{"done": true}
	require.NoError(t, s.ApplyExecutionTransition("exec-1", models.ExecutionStatusCompleted, output, ""))

	snap, err := s.Get("exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, snap.Execution.Status)
	assert.Equal(t, output, snap.Execution.Output)
	require.NotNil(t, snap.Execution.CompletedAt)
}

func TestStore_TerminalExecutionIsImmutable(t *testing.T) {
	s := NewStore()
	s.Create(newExecution("exec-1"))

	require.NoError(t, s.ApplyExecutionTransition("exec-1", models.ExecutionStatusFailed, nil, "boom"))

	err := s.ApplyExecutionTransition("exec-1", models.ExecutionStatusRunning, nil, "")
	require.Error(t, err)

	snap, err := s.Get("exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, snap.Execution.Status)
	assert.Equal(t, "boom", snap.Execution.ErrorMessage)
}

func TestStore_TerminalSnapshotReadsAreIdempotent(t *testing.T) {
	s := NewStore()
	s.Create(newExecution("exec-1"))
	require.NoError(t, s.ApplyExecutionTransition("exec-1", models.ExecutionStatusCompleted, map[string]any{"n": 1}, ""))

	first, err := s.Get("exec-1")
	require.NoError(t, err)

	second, err := s.Get("exec-1")
	require.NoError(t, err)

	assert.Equal(t, first.Execution, second.Execution)
}

func TestStore_NodeTransitions(t *testing.T) {
	s := NewStore()
	s.Create(newExecution("exec-1"))

	running := models.NodeExecution{
		ID:          "ne-1",
		ExecutionID: "exec-1",
		NodeID:      "a",
		NodeType:    "transform",
		Status:      models.NodeStatusRunning,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, s.ApplyNodeTransition("exec-1", running))

	// A second running transition for the same node is rejected.
	err := s.ApplyNodeTransition("exec-1", running)
	require.Error(t, err)

	success := running
	success.Status = models.NodeStatusSuccess
	success.OutputData = map[string]any{"out": 1}
	require.NoError(t, s.ApplyNodeTransition("exec-1", success))

	// Terminal node records are immutable.
	err = s.ApplyNodeTransition("exec-1", running)
	require.Error(t, err)

	snap, err := s.Get("exec-1")
	require.NoError(t, err)
	require.Len(t, snap.NodeExecutions, 1)
	assert.Equal(t, models.NodeStatusSuccess, snap.NodeExecutions["a"].Status)
}

func TestStore_Remove(t *testing.T) {
	s := NewStore()
	s.Create(newExecution("exec-1"))
	assert.Equal(t, 1, s.Len())

	s.Remove("exec-1")
	assert.Equal(t, 0, s.Len())

	_, err := s.Get("exec-1")
	assert.ErrorIs(t, err, ErrExecutionNotFound)
}

func TestStore_ConcurrentNodeTransitions(t *testing.T) {
	s := NewStore()
	s.Create(newExecution("exec-1"))

	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			node := models.NodeExecution{
				ID:          "ne-" + string(rune('a'+n%26)),
				ExecutionID: "exec-1",
				NodeID:      nodeID(n),
				Status:      models.NodeStatusSuccess,
				OutputData:  map[string]any{"n": n},
				CreatedAt:   time.Now().UTC(),
			}

			assert.NoError(t, s.ApplyNodeTransition("exec-1", node))
		}(i)
	}

	wg.Wait()

	snap, err := s.Get("exec-1")
	require.NoError(t, err)
	assert.Len(t, snap.NodeExecutions, 50)
}

func nodeID(n int) string {
	return "node-" + string(rune('0'+n/10)) + string(rune('0'+n%10))
}
