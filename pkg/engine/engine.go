// Package engine executes workflow graphs. Independent ready nodes run
// concurrently; every state transition for one execution funnels through that
// execution's run loop, so observers always see a consistent progression.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/roadplatform/road/pkg/broadcast"
	"github.com/roadplatform/road/pkg/events"
	"github.com/roadplatform/road/pkg/models"
	"github.com/roadplatform/road/pkg/otelhelper"
	"github.com/roadplatform/road/pkg/persistence"
	"github.com/roadplatform/road/pkg/runner"
	"github.com/roadplatform/road/pkg/state"
	"github.com/roadplatform/road/pkg/template"
)

// ErrExecutionNotRunning indicates a cancel request for an execution the
// engine is not currently driving.
var ErrExecutionNotRunning = errors.New("execution is not running")

// terminalStateRetention is how long a finished execution stays in the live
// state store before reads fall through to the record store.
const terminalStateRetention = time.Minute

// Engine drives workflow executions from start to a terminal status.
type Engine struct {
	logger      *slog.Logger
	registry    *runner.Registry
	states      *state.Store
	broadcaster *broadcast.Broadcaster
	persistence persistence.Persistence
	tracer      trace.Tracer

	mu   sync.Mutex
	runs map[string]context.CancelCauseFunc
}

// NewEngine wires an engine from its collaborators. A nil tracer disables
// span emission.
func NewEngine(
	logger *slog.Logger,
	registry *runner.Registry,
	states *state.Store,
	broadcaster *broadcast.Broadcaster,
	p persistence.Persistence,
	tracer trace.Tracer,
) *Engine {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("engine")
	}

	return &Engine{
		logger:      logger.With("module", "engine"),
		registry:    registry,
		states:      states,
		broadcaster: broadcaster,
		persistence: p,
		tracer:      tracer,
		runs:        make(map[string]context.CancelCauseFunc),
	}
}

// StartExecution validates the workflow graph, registers a new execution and
// returns its id. Node dispatch happens on background goroutines; the caller
// observes progress through the state store and the broadcaster.
func (e *Engine) StartExecution(ctx context.Context, workflow *models.Workflow, input map[string]any) (string, error) {
	if err := models.ValidateGraph(workflow); err != nil {
		return "", fmt.Errorf("invalid workflow graph: %w", err)
	}

	executionID := generateExecutionID()

	execution := models.Execution{
		ID:         executionID,
		WorkflowID: workflow.ID,
		Status:     models.ExecutionStatusPending,
		Input:      input,
		StartedAt:  time.Now().UTC(),
	}

	e.states.Create(execution)
	e.persistExecution(ctx, &execution, true)

	// The run outlives the request that started it.
	runCtx, cancel := context.WithCancelCause(context.WithoutCancel(ctx))

	e.mu.Lock()
	e.runs[executionID] = cancel
	e.mu.Unlock()

	e.transitionExecution(runCtx, executionID, models.ExecutionStatusRunning, nil, "")
	e.broadcaster.Publish(runCtx, events.NewExecutionStart(executionID, workflow.ID))

	go e.runLoop(runCtx, workflow, executionID, input)

	return executionID, nil
}

// Cancel stops further dispatch for a running execution and fails it with the
// given reason. In-flight node work is not interrupted; its results are still
// recorded but trigger no new dispatch.
func (e *Engine) Cancel(executionID, reason string) error {
	e.mu.Lock()
	cancel, ok := e.runs[executionID]
	e.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrExecutionNotRunning, executionID)
	}

	if reason == "" {
		reason = "execution cancelled"
	}

	cancel(errors.New(reason))

	return nil
}

type nodeResult struct {
	node     *models.Node
	record   models.NodeExecution
	output   map[string]any
	err      error
	duration time.Duration
}

// runLoop is the single writer for one execution. It dispatches the ready
// frontier, consumes completions and decides outgoing edges until every
// reachable node is terminal or the run fails.
func (e *Engine) runLoop(ctx context.Context, workflow *models.Workflow, executionID string, input map[string]any) {
	logger := e.logger.With("execution_id", executionID, "workflow_id", workflow.ID)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.ExecutionIDKey, executionID),
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.WorkflowNameKey, workflow.Name),
	)
	defer span.End()

	defer func() {
		e.mu.Lock()
		delete(e.runs, executionID)
		e.mu.Unlock()

		// The record store is the long-term home for finished runs; the live
		// view keeps them only long enough for late observers to resync.
		time.AfterFunc(terminalStateRetention, func() {
			e.states.Remove(executionID)
		})
	}()

	run := &runState{
		engine:      e,
		ctx:         ctx,
		logger:      logger,
		workflow:    workflow,
		executionID: executionID,
		input:       input,
		nodes:       make(map[string]*models.Node, len(workflow.Nodes)),
		remaining:   make(map[string]int, len(workflow.Nodes)),
		satisfied:   make(map[string][]map[string]any, len(workflow.Nodes)),
		results:     make(chan nodeResult),
		aggregate:   map[string]any{},
	}

	for _, node := range workflow.Nodes {
		run.nodes[node.ID] = node
	}

	for id, edges := range models.Predecessors(workflow) {
		run.remaining[id] = len(edges)
	}

	run.successors = models.Successors(workflow)

	// Roots form the initial frontier.
	for _, node := range workflow.Nodes {
		if run.remaining[node.ID] == 0 {
			run.readyNode(node.ID)
		}
	}

	done := ctx.Done()

	for run.inFlight > 0 {
		select {
		case res := <-run.results:
			run.inFlight--
			run.handleResult(res)
		case <-done:
			done = nil

			run.fail(causeMessage(ctx))
		}
	}

	if !run.failed {
		if err := mergo.Merge(&run.aggregate, map[string]any{"nodes_processed": run.processed}, mergo.WithOverride); err != nil {
			logger.Error("Failed to assemble aggregate output", "error", err)
		}

		e.transitionExecution(ctx, executionID, models.ExecutionStatusCompleted, run.aggregate, "")
		e.broadcaster.Publish(ctx, events.NewExecutionComplete(executionID, workflow.ID, models.ExecutionStatusCompleted, ""))
		logger.Info("Workflow execution completed", "nodes_processed", run.processed)
	}
}

// runState carries one execution's dispatch bookkeeping. Only the run loop
// goroutine touches it.
type runState struct {
	engine      *Engine
	ctx         context.Context
	logger      *slog.Logger
	workflow    *models.Workflow
	executionID string
	input       map[string]any

	nodes      map[string]*models.Node
	remaining  map[string]int
	satisfied  map[string][]map[string]any
	successors map[string][]*models.Edge

	results   chan nodeResult
	inFlight  int
	processed int
	failed    bool
	aggregate map[string]any
}

// readyNode handles a node whose incoming edges are all decided: dispatch it
// when at least one edge (or no edge at all, for roots) is satisfied, skip it
// otherwise.
func (r *runState) readyNode(nodeID string) {
	if r.failed {
		return
	}

	node := r.nodes[nodeID]
	isRoot := r.isRoot(nodeID)

	inputs, gated := r.satisfied[nodeID]
	if !isRoot && !gated {
		r.skipNode(node)

		return
	}

	nodeInput := r.input
	if !isRoot {
		nodeInput = mergeOutputs(inputs)
	}

	r.startNode(node, nodeInput)
}

func (r *runState) isRoot(nodeID string) bool {
	for _, edge := range r.workflow.Edges {
		if edge.Target == nodeID {
			return false
		}
	}

	return true
}

// startNode records the running transition and launches the node goroutine.
func (r *runState) startNode(node *models.Node, input map[string]any) {
	record := models.NodeExecution{
		ID:          uuid.New().String(),
		ExecutionID: r.executionID,
		NodeID:      node.ID,
		NodeType:    node.Type,
		Status:      models.NodeStatusRunning,
		InputData:   input,
		CreatedAt:   time.Now().UTC(),
	}

	r.engine.transitionNode(r.ctx, r.workflow.ID, record, "")
	r.inFlight++

	// Node work is never interrupted by cancellation; the run loop just stops
	// dispatching afterwards.
	invokeCtx := context.WithoutCancel(r.ctx)

	go func() {
		started := time.Now()

		output, err := r.engine.invokeNode(invokeCtx, r.executionID, node, input)

		r.results <- nodeResult{
			node:     node,
			record:   record,
			output:   output,
			err:      err,
			duration: time.Since(started),
		}
	}()
}

// skipNode resolves a node none of whose incoming edges can be satisfied:
// a no-op success, so dependents are not starved.
func (r *runState) skipNode(node *models.Node) {
	output := map[string]any{"skipped": true}

	record := models.NodeExecution{
		ID:          uuid.New().String(),
		ExecutionID: r.executionID,
		NodeID:      node.ID,
		NodeType:    node.Type,
		Status:      models.NodeStatusSuccess,
		OutputData:  output,
		CreatedAt:   time.Now().UTC(),
	}

	r.engine.transitionNode(r.ctx, r.workflow.ID, record, "skipped")
	r.logger.Info("Node skipped, no incoming edge satisfied", "node_id", node.ID)

	r.processed++
	r.decideOutgoing(node.ID, output, true)
}

// handleResult records a completed node and advances the frontier.
func (r *runState) handleResult(res nodeResult) {
	record := res.record
	record.DurationMs = res.duration.Milliseconds()

	if res.err != nil {
		record.Status = models.NodeStatusError
		record.ErrorMessage = res.err.Error()

		r.engine.transitionNode(r.ctx, r.workflow.ID, record, res.err.Error())
		r.logger.Error("Node execution failed", "node_id", res.node.ID, "error", res.err)

		r.fail(fmt.Sprintf("node %s failed: %s", res.node.ID, res.err.Error()))

		return
	}

	record.Status = models.NodeStatusSuccess
	record.OutputData = res.output

	r.engine.transitionNode(r.ctx, r.workflow.ID, record, "")
	r.processed++

	if err := mergo.Merge(&r.aggregate, res.output, mergo.WithOverride); err != nil {
		r.logger.Warn("Failed to merge node output into aggregate", "node_id", res.node.ID, "error", err)
	}

	if r.failed {
		// Late sibling of a failed run: recorded above, not dispatched from.
		return
	}

	r.decideOutgoing(res.node.ID, res.output, false)
}

// decideOutgoing settles every edge leaving a terminal node. Conditions gate
// dispatch: an unsatisfied edge still counts towards the target's decided
// in-degree. Edges leaving a skipped node are satisfied only when
// unconditional.
func (r *runState) decideOutgoing(nodeID string, output map[string]any, skipped bool) {
	for _, edge := range r.successors[nodeID] {
		ok := false

		switch {
		case edge.Condition == "":
			ok = true
		case skipped:
			ok = false
		default:
			satisfied, err := evalCondition(edge, output)
			if err != nil {
				r.logger.Warn("Edge condition evaluation failed, treating as unsatisfied",
					"edge_id", edge.ID, "error", err)
			}

			ok = satisfied
		}

		if ok {
			r.satisfied[edge.Target] = append(r.satisfied[edge.Target], output)
		}

		r.remaining[edge.Target]--
		if r.remaining[edge.Target] == 0 {
			r.readyNode(edge.Target)
		}
	}
}

// fail moves the execution to failed exactly once.
func (r *runState) fail(message string) {
	if r.failed {
		return
	}

	r.failed = true

	r.engine.transitionExecution(r.ctx, r.executionID, models.ExecutionStatusFailed, nil, message)
	r.engine.broadcaster.Publish(r.ctx, events.NewExecutionComplete(r.executionID, r.workflow.ID, models.ExecutionStatusFailed, message))
	r.logger.Warn("Workflow execution failed", "error", message)
}

// invokeNode resolves the runner for a node and executes it under its own span.
func (e *Engine) invokeNode(ctx context.Context, executionID string, node *models.Node, input map[string]any) (map[string]any, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.node",
		attribute.String(otelhelper.ExecutionIDKey, executionID),
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, node.Type),
	)
	defer span.End()

	nodeRunner, err := e.registry.Create(ctx, node.Type, node.ID, node.Config)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	output, err := nodeRunner.Invoke(ctx, input)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	return output, nil
}

// transitionExecution applies an execution-level transition to the live state,
// writes it through to the record store and logs failures without aborting.
func (e *Engine) transitionExecution(ctx context.Context, executionID string, status models.ExecutionStatus, output map[string]any, errorMessage string) {
	if err := e.states.ApplyExecutionTransition(executionID, status, output, errorMessage); err != nil {
		e.logger.ErrorContext(ctx, "Failed to apply execution transition", "execution_id", executionID, "error", err)

		return
	}

	snap, err := e.states.Get(executionID)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to read execution state", "execution_id", executionID, "error", err)

		return
	}

	e.persistExecution(ctx, &snap.Execution, false)
}

// transitionNode applies a node-level transition and emits the node_update
// progress event.
func (e *Engine) transitionNode(ctx context.Context, workflowID string, record models.NodeExecution, message string) {
	if err := e.states.ApplyNodeTransition(record.ExecutionID, record); err != nil {
		e.logger.ErrorContext(ctx, "Failed to apply node transition",
			"execution_id", record.ExecutionID, "node_id", record.NodeID, "error", err)
	}

	if err := e.persistence.ExecutionRepository().SaveNodeExecution(ctx, &record); err != nil {
		e.logger.ErrorContext(ctx, "Failed to persist node execution",
			"execution_id", record.ExecutionID, "node_id", record.NodeID, "error", err)
	}

	e.broadcaster.Publish(ctx, events.NewNodeUpdate(record.ExecutionID, workflowID, record.NodeID, record.Status, message))
}

// persistExecution writes the execution record through to the store. Failures
// are logged; the in-memory run is authoritative while it lives.
func (e *Engine) persistExecution(ctx context.Context, execution *models.Execution, create bool) {
	repo := e.persistence.ExecutionRepository()

	var err error
	if create {
		err = repo.CreateExecution(ctx, execution)
	} else {
		err = repo.UpdateExecution(ctx, execution)
	}

	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to persist execution record",
			"execution_id", execution.ID, "error", err)
	}
}

// evalCondition renders an edge condition against the source node's output
// and coerces the result to a boolean.
func evalCondition(edge *models.Edge, output map[string]any) (bool, error) {
	rendered, err := template.Render(edge.Condition, map[string]any{"output": output})
	if err != nil {
		return false, fmt.Errorf("failed to render condition: %w", err)
	}

	return models.CoerceBool(rendered)
}

// mergeOutputs deep-merges predecessor outputs in arrival order.
func mergeOutputs(outputs []map[string]any) map[string]any {
	merged := map[string]any{}

	for _, out := range outputs {
		if err := mergo.Merge(&merged, out, mergo.WithOverride); err != nil {
			continue
		}
	}

	return merged
}

func causeMessage(ctx context.Context) string {
	cause := context.Cause(ctx)
	if cause != nil && !errors.Is(cause, context.Canceled) {
		return cause.Error()
	}

	return "execution cancelled"
}

func generateExecutionID() string {
	return "exec-" + uuid.New().String()[:8]
}
