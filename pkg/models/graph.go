package models

import (
	"errors"
	"fmt"
)

// Graph validation errors. These are caller-side precondition failures: a
// workflow that fails validation is never handed to the engine.
var (
	ErrDuplicateNodeID = errors.New("duplicate node id")
	ErrDanglingEdge    = errors.New("edge references unknown node")
	ErrGraphCycle      = errors.New("workflow graph contains a cycle")
)

// ValidateGraph checks that the workflow's node/edge set forms a well-formed
// DAG: node ids unique, every edge endpoint resolves to a node, no cycles.
func ValidateGraph(w *Workflow) error {
	seen := make(map[string]struct{}, len(w.Nodes))
	for _, n := range w.Nodes {
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateNodeID, n.ID)
		}

		seen[n.ID] = struct{}{}
	}

	for _, e := range w.Edges {
		if _, ok := seen[e.Source]; !ok {
			return fmt.Errorf("%w: source %s", ErrDanglingEdge, e.Source)
		}

		if _, ok := seen[e.Target]; !ok {
			return fmt.Errorf("%w: target %s", ErrDanglingEdge, e.Target)
		}
	}

	return checkAcyclic(w)
}

// checkAcyclic runs Kahn's algorithm; any node left unprocessed is on a cycle.
func checkAcyclic(w *Workflow) error {
	indegree := make(map[string]int, len(w.Nodes))
	successors := make(map[string][]string, len(w.Nodes))

	for _, n := range w.Nodes {
		indegree[n.ID] = 0
	}

	for _, e := range w.Edges {
		indegree[e.Target]++
		successors[e.Source] = append(successors[e.Source], e.Target)
	}

	queue := make([]string, 0, len(w.Nodes))
	for id, deg := range indegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	processed := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		processed++

		for _, succ := range successors[id] {
			indegree[succ]--
			if indegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	if processed != len(w.Nodes) {
		return ErrGraphCycle
	}

	return nil
}

// Predecessors returns, for every node id, the edges pointing at it.
func Predecessors(w *Workflow) map[string][]*Edge {
	preds := make(map[string][]*Edge, len(w.Nodes))
	for _, e := range w.Edges {
		preds[e.Target] = append(preds[e.Target], e)
	}

	return preds
}

// Successors returns, for every node id, the edges leaving it.
func Successors(w *Workflow) map[string][]*Edge {
	succs := make(map[string][]*Edge, len(w.Nodes))
	for _, e := range w.Edges {
		succs[e.Source] = append(succs[e.Source], e)
	}

	return succs
}
