package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roadplatform/road/pkg/models"
)

func TestSortNodeExecutions_OrdersByCreation(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	nodes := []*models.NodeExecution{
		{NodeID: "c", CreatedAt: base.Add(2 * time.Second)},
		{NodeID: "a", CreatedAt: base},
		{NodeID: "b", CreatedAt: base.Add(time.Second)},
	}

	sortNodeExecutions(nodes)

	assert.Equal(t, []string{"a", "b", "c"}, nodeIDs(nodes))
}

func TestSortNodeExecutions_StableUnderTimestampTies(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Parallel branches can record their node state within the same clock
	// tick. The order must not depend on how the input happened to be laid
	// out.
	permutations := [][]string{
		{"left", "right", "join"},
		{"right", "join", "left"},
		{"join", "left", "right"},
	}

	for _, perm := range permutations {
		nodes := make([]*models.NodeExecution, 0, len(perm))
		for _, id := range perm {
			nodes = append(nodes, &models.NodeExecution{NodeID: id, CreatedAt: base})
		}

		sortNodeExecutions(nodes)

		assert.Equal(t, []string{"join", "left", "right"}, nodeIDs(nodes))
	}
}

func nodeIDs(nodes []*models.NodeExecution) []string {
	ids := make([]string, 0, len(nodes))
	for _, node := range nodes {
		ids = append(ids, node.NodeID)
	}

	return ids
}
