// Package stream serves the realtime execution channel: WebSocket endpoints
// that start or observe a workflow run and forward its progress events as
// JSON frames until the run reaches a terminal status.
package stream

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/goccy/go-json"

	"github.com/roadplatform/road/pkg/broadcast"
	"github.com/roadplatform/road/pkg/events"
	"github.com/roadplatform/road/pkg/services"
)

// StartFrame is the first client message on a workflow stream.
type StartFrame struct {
	Action string         `json:"action"`
	Inputs map[string]any `json:"inputs"`
}

// errorFrame is sent to the client before closing on a failed handshake.
type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Gateway upgrades HTTP requests to WebSocket streams of progress events.
type Gateway struct {
	logger      *slog.Logger
	executions  *services.Execution
	broadcaster *broadcast.Broadcaster
}

// NewGateway creates a stream gateway.
func NewGateway(logger *slog.Logger, executions *services.Execution, broadcaster *broadcast.Broadcaster) *Gateway {
	return &Gateway{
		logger:      logger.With("module", "stream"),
		executions:  executions,
		broadcaster: broadcaster,
	}
}

// Handler returns the gateway's HTTP routes.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /workflows/{id}/stream", g.handleWorkflowStream)
	mux.HandleFunc("GET /executions/{id}/stream", g.handleExecutionStream)

	return mux
}

// handleWorkflowStream waits for a start frame, launches the execution and
// streams its progress until execution_complete or client disconnect.
func (g *Gateway) handleWorkflowStream(w http.ResponseWriter, r *http.Request) {
	workflowID := r.PathValue("id")

	conn, err := g.accept(w, r)
	if err != nil {
		return
	}
	defer conn.close()

	ctx := r.Context()

	var frame StartFrame
	if err := conn.readJSON(ctx, &frame); err != nil {
		g.logger.Warn("Failed to read start frame", "workflow_id", workflowID, "error", err)

		return
	}

	if frame.Action != "start" {
		_ = conn.writeJSON(ctx, errorFrame{Type: "error", Message: "expected {\"action\":\"start\"}"})

		return
	}

	execution, err := g.executions.Execute(ctx, workflowID, frame.Inputs)
	if err != nil {
		_ = conn.writeJSON(ctx, errorFrame{Type: "error", Message: err.Error()})

		return
	}

	sub := g.broadcaster.Subscribe(execution.ID)
	defer sub.Unsubscribe()

	// The run began before the subscription existed, so the start event is
	// synthesized here rather than relied on from the bus.
	if err := conn.writeJSON(ctx, events.NewExecutionStart(execution.ID, workflowID)); err != nil {
		return
	}

	// A short run can reach a terminal status before the subscription landed,
	// in which case its completion event was published to nobody. Checking
	// state after subscribing closes that window: the engine transitions
	// state before publishing, so a non-terminal read here guarantees the
	// completion event arrives on the subscription.
	if current, err := g.executions.Get(ctx, execution.ID); err == nil && current.Status.IsTerminal() {
		_ = conn.writeJSON(ctx, events.NewExecutionComplete(
			current.ID, current.WorkflowID, current.Status, current.ErrorMessage))

		return
	}

	g.streamUntilComplete(ctx, conn, sub, execution.ID)
}

// handleExecutionStream attaches an observer to an existing execution. An
// already terminal execution yields one synthetic execution_complete frame
// instead of a silent close.
func (g *Gateway) handleExecutionStream(w http.ResponseWriter, r *http.Request) {
	executionID := r.PathValue("id")

	conn, err := g.accept(w, r)
	if err != nil {
		return
	}
	defer conn.close()

	ctx := r.Context()

	// Subscribe before inspecting state so no transition slips between the
	// check and the subscription.
	sub := g.broadcaster.Subscribe(executionID)
	defer sub.Unsubscribe()

	execution, err := g.executions.Get(ctx, executionID)
	if err != nil {
		message := "failed to load execution"
		if errors.Is(err, services.ErrExecutionNotFound) {
			message = "execution not found"
		}

		_ = conn.writeJSON(ctx, errorFrame{Type: "error", Message: message})

		return
	}

	if execution.Status.IsTerminal() {
		_ = conn.writeJSON(ctx, events.NewExecutionComplete(
			execution.ID, execution.WorkflowID, execution.Status, execution.ErrorMessage))

		return
	}

	g.streamUntilComplete(ctx, conn, sub, executionID)
}

// streamUntilComplete forwards events until the terminal frame is written,
// the observer is evicted or the client goes away.
func (g *Gateway) streamUntilComplete(ctx context.Context, conn *wsConn, sub *broadcast.Subscription, executionID string) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.C:
			if !ok {
				// Evicted or broadcaster shutdown; resync from state so the
				// client is not left hanging on a finished run.
				g.resyncTerminal(ctx, conn, executionID)

				return
			}

			if err := conn.writeJSON(ctx, event); err != nil {
				g.logger.Debug("Client went away", "execution_id", executionID, "error", err)

				return
			}

			if event.Type == events.ExecutionComplete {
				return
			}
		}
	}
}

func (g *Gateway) resyncTerminal(ctx context.Context, conn *wsConn, executionID string) {
	execution, err := g.executions.Get(ctx, executionID)
	if err != nil || !execution.Status.IsTerminal() {
		return
	}

	_ = conn.writeJSON(ctx, events.NewExecutionComplete(
		execution.ID, execution.WorkflowID, execution.Status, execution.ErrorMessage))
}

func (g *Gateway) accept(w http.ResponseWriter, r *http.Request) (*wsConn, error) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		g.logger.Warn("WebSocket accept failed", "error", err)

		return nil, err
	}

	return &wsConn{conn: conn}, nil
}

// wsConn guards writes with a mutex: the WebSocket does not support
// concurrent writers.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsConn) readJSON(ctx context.Context, out any) error {
	_, data, err := w.conn.Read(ctx)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, out)
}

func (w *wsConn) writeJSON(ctx context.Context, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return w.conn.Write(ctx, websocket.MessageText, data)
}

func (w *wsConn) close() {
	_ = w.conn.Close(websocket.StatusNormalClosure, "closing")
}
