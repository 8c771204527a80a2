// Package state holds the authoritative in-memory view of live workflow
// executions. The engine is the only writer; read APIs serve "current state"
// queries from here without touching the record store.
package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/roadplatform/road/pkg/models"
)

// ErrExecutionNotFound indicates no live execution exists for the id.
var ErrExecutionNotFound = errors.New("execution not found")

// Snapshot is a deep copy of one execution's state. Callers never observe a
// partially mutated view, and snapshots of terminal executions are stable
// across repeated reads.
type Snapshot struct {
	Execution      models.Execution
	NodeExecutions map[string]models.NodeExecution
}

type entry struct {
	mu        sync.Mutex
	execution models.Execution
	nodes     map[string]models.NodeExecution
}

// Store maps execution ids to live execution state. Each execution carries its
// own lock, so different executions never contend with one another.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Create registers a new execution. The execution value is copied in.
func (s *Store) Create(execution models.Execution) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[execution.ID] = &entry{
		execution: copyExecution(execution),
		nodes:     make(map[string]models.NodeExecution),
	}
}

// Get returns a deep-copied snapshot of the execution's current state.
func (s *Store) Get(executionID string) (*Snapshot, error) {
	e, err := s.entry(executionID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snap := &Snapshot{
		Execution:      copyExecution(e.execution),
		NodeExecutions: make(map[string]models.NodeExecution, len(e.nodes)),
	}

	for id, ne := range e.nodes {
		snap.NodeExecutions[id] = copyNodeExecution(ne)
	}

	return snap, nil
}

// ApplyExecutionTransition moves the execution itself to a new status. Output
// and errorMessage apply to terminal transitions only. Transitions out of a
// terminal status are rejected; terminal executions are immutable.
func (s *Store) ApplyExecutionTransition(executionID string, status models.ExecutionStatus, output map[string]any, errorMessage string) error {
	e, err := s.entry(executionID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.execution.Status.IsTerminal() {
		return fmt.Errorf("execution %s is already %s", executionID, e.execution.Status)
	}

	e.execution.Status = status

	if status.IsTerminal() {
		now := time.Now().UTC()
		e.execution.CompletedAt = &now
		e.execution.Output = copyPayload(output)
		e.execution.ErrorMessage = errorMessage
	}

	return nil
}

// ApplyNodeTransition is the single mutation entry point for per-node state.
// It is safe under concurrent completion callbacks within one execution: the
// per-execution lock serializes every transition. A transition to running is
// rejected while the same node is already running, and terminal node records
// are immutable.
func (s *Store) ApplyNodeTransition(executionID string, node models.NodeExecution) error {
	e, err := s.entry(executionID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	current, exists := e.nodes[node.NodeID]
	if exists {
		if current.Status.IsTerminal() {
			return fmt.Errorf("node %s in execution %s is already %s", node.NodeID, executionID, current.Status)
		}

		if current.Status == models.NodeStatusRunning && node.Status == models.NodeStatusRunning {
			return fmt.Errorf("node %s in execution %s is already running", node.NodeID, executionID)
		}
	}

	e.nodes[node.NodeID] = copyNodeExecution(node)

	return nil
}

// Remove drops an execution from the live view. Reads fall back to the record
// store afterwards.
func (s *Store) Remove(executionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, executionID)
}

// Len returns the number of executions currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

func (s *Store) entry(executionID string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[executionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
	}

	return e, nil
}

func copyExecution(in models.Execution) models.Execution {
	out := in
	out.Input = copyPayload(in.Input)
	out.Output = copyPayload(in.Output)

	if in.CompletedAt != nil {
		t := *in.CompletedAt
		out.CompletedAt = &t
	}

	return out
}

func copyNodeExecution(in models.NodeExecution) models.NodeExecution {
	out := in
	out.InputData = copyPayload(in.InputData)
	out.OutputData = copyPayload(in.OutputData)

	return out
}

func copyPayload(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}

	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = copyValue(v)
	}

	return out
}

// copyValue descends into the container types JSON decoding produces so a
// snapshot never aliases nested maps or slices still held by the engine.
func copyValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return copyPayload(value)
	case []any:
		out := make([]any, len(value))
		for i, elem := range value {
			out[i] = copyValue(elem)
		}

		return out
	default:
		return v
	}
}
