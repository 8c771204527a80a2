package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearWorkflow() *Workflow {
	return &Workflow{
		ID:   "wf-1",
		Name: "linear",
		Nodes: []*Node{
			{ID: "a", Type: "transform"},
			{ID: "b", Type: "transform"},
			{ID: "c", Type: "transform"},
		},
		Edges: []*Edge{
			{ID: "e1", Source: "a", Target: "b"},
			{ID: "e2", Source: "b", Target: "c"},
		},
	}
}

func TestValidateGraph_Valid(t *testing.T) {
	require.NoError(t, ValidateGraph(linearWorkflow()))
}

func TestValidateGraph_DuplicateNodeID(t *testing.T) {
	w := linearWorkflow()
	w.Nodes = append(w.Nodes, &Node{ID: "a", Type: "transform"})

	err := ValidateGraph(w)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateNodeID)
}

func TestValidateGraph_DanglingEdge(t *testing.T) {
	w := linearWorkflow()
	w.Edges = append(w.Edges, &Edge{ID: "e3", Source: "c", Target: "ghost"})

	err := ValidateGraph(w)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDanglingEdge)
}

func TestValidateGraph_Cycle(t *testing.T) {
	w := linearWorkflow()
	w.Edges = append(w.Edges, &Edge{ID: "e3", Source: "c", Target: "a"})

	err := ValidateGraph(w)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGraphCycle)
}

func TestValidateGraph_SelfLoop(t *testing.T) {
	w := &Workflow{
		Nodes: []*Node{{ID: "a"}},
		Edges: []*Edge{{ID: "e1", Source: "a", Target: "a"}},
	}

	assert.ErrorIs(t, ValidateGraph(w), ErrGraphCycle)
}

func TestValidateGraph_DisconnectedComponents(t *testing.T) {
	w := &Workflow{
		Nodes: []*Node{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}},
		Edges: []*Edge{{ID: "e1", Source: "a", Target: "b"}},
	}

	assert.NoError(t, ValidateGraph(w))
}

func TestPredecessorsSuccessors(t *testing.T) {
	w := linearWorkflow()

	preds := Predecessors(w)
	succs := Successors(w)

	assert.Empty(t, preds["a"])
	require.Len(t, preds["b"], 1)
	assert.Equal(t, "a", preds["b"][0].Source)

	require.Len(t, succs["b"], 1)
	assert.Equal(t, "c", succs["b"][0].Target)
	assert.Empty(t, succs["c"])
}

func TestCoerceBool(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    bool
		wantErr bool
	}{
		{name: "nil is true", input: nil, want: true},
		{name: "empty string is true", input: "", want: true},
		{name: "bool true", input: true, want: true},
		{name: "bool false", input: false, want: false},
		{name: "string true", input: "true", want: true},
		{name: "string false", input: "false", want: false},
		{name: "nonzero int", input: 3, want: true},
		{name: "zero float", input: 0.0, want: false},
		{name: "nonzero float", input: 1.5, want: true},
		{name: "garbage string", input: "maybe", wantErr: true},
		{name: "unsupported type", input: []string{"x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CoerceBool(tt.input)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
