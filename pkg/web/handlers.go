// Package web provides HTTP handlers and REST API endpoints for workflow
// management, execution and the prompt/conversation stores.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/roadplatform/road/pkg/models"
	"github.com/roadplatform/road/pkg/runner"
	"github.com/roadplatform/road/pkg/services"
)

type APIHandlers struct {
	workflowService     *services.Workflow
	executionService    *services.Execution
	promptService       *services.Prompt
	conversationService *services.Conversation
	playgroundService   *services.Playground
	registry            *runner.Registry
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	executionService *services.Execution,
	promptService *services.Prompt,
	conversationService *services.Conversation,
	playgroundService *services.Playground,
	registry *runner.Registry,
) *APIHandlers {
	return &APIHandlers{
		workflowService:     workflowService,
		executionService:    executionService,
		promptService:       promptService,
		conversationService: conversationService,
		playgroundService:   playgroundService,
		registry:            registry,
	}
}

// Register mounts every route on the app.
func (h *APIHandlers) Register(app *fiber.App) {
	app.Get("/workflows", h.GetWorkflows)
	app.Post("/workflows", h.CreateWorkflow)
	app.Get("/workflows/:id", h.GetWorkflow)
	app.Patch("/workflows/:id", h.UpdateWorkflow)
	app.Delete("/workflows/:id", h.DeleteWorkflow)
	app.Post("/workflows/:id/execute", h.ExecuteWorkflow)
	app.Get("/workflows/:id/executions", h.GetWorkflowExecutions)

	app.Get("/executions/:id", h.GetExecution)
	app.Get("/executions/:id/nodes", h.GetExecutionNodes)
	app.Post("/executions/:id/cancel", h.CancelExecution)

	app.Get("/prompts", h.GetPrompts)
	app.Post("/prompts", h.CreatePrompt)
	app.Get("/prompts/:id", h.GetPrompt)
	app.Put("/prompts/:id", h.UpdatePrompt)
	app.Delete("/prompts/:id", h.DeletePrompt)

	app.Post("/playground/chat", h.PlaygroundChat)
	app.Get("/playground/models", h.GetPlaygroundModels)
	app.Get("/playground/providers", h.GetPlaygroundProviders)

	app.Get("/conversations", h.GetConversations)
	app.Get("/conversations/:sessionId", h.GetConversation)
	app.Put("/conversations/:sessionId", h.SaveConversation)
	app.Delete("/conversations/:sessionId", h.DeleteConversation)

	app.Get("/node-types", h.GetNodeTypes)
	app.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	req := services.ListWorkflowsRequest{
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	var err error

	req.Limit, req.Offset, err = parsePagination(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.workflowService.ListWorkflows(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":     result.Workflows,
		"total_count":   result.TotalCount,
		"has_next_page": result.HasNextPage,
		"pagination": fiber.Map{
			"limit":  req.Limit,
			"offset": req.Offset,
		},
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req services.CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	workflow, err := h.workflowService.Create(c.Context(), &req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	var req services.UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	workflow, err := h.workflowService.Update(c.Context(), c.Params("id"), &req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.workflowService.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ExecuteWorkflowRequest is the payload for starting a run over HTTP.
type ExecuteWorkflowRequest struct {
	Input map[string]any `json:"input"`
}

func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	var req ExecuteWorkflowRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	execution, err := h.executionService.Execute(c.Context(), c.Params("id"), req.Input)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(execution)
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	limit, offset, err := parsePagination(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	executions, err := h.executionService.List(c.Context(), c.Params("id"), limit, offset)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"executions": executions})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.executionService.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) GetExecutionNodes(c fiber.Ctx) error {
	nodes, err := h.executionService.ListNodes(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"nodes": nodes})
}

// CancelExecutionRequest optionally provides a cancellation reason.
type CancelExecutionRequest struct {
	Reason string `json:"reason"`
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	var req CancelExecutionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	if err := h.executionService.Cancel(c.Context(), c.Params("id"), req.Reason); err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"status": "cancelling"})
}

func (h *APIHandlers) GetPrompts(c fiber.Ctx) error {
	limit, offset, err := parsePagination(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	prompts, err := h.promptService.List(c.Context(), c.Query("query"), c.Query("tag"), limit, offset)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"prompts": prompts})
}

func (h *APIHandlers) GetPrompt(c fiber.Ctx) error {
	prompt, err := h.promptService.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(prompt)
}

func (h *APIHandlers) CreatePrompt(c fiber.Ctx) error {
	var prompt models.Prompt
	if err := c.Bind().JSON(&prompt); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	created, err := h.promptService.Create(c.Context(), &prompt)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdatePrompt(c fiber.Ctx) error {
	var prompt models.Prompt
	if err := c.Bind().JSON(&prompt); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	updated, err := h.promptService.Update(c.Context(), c.Params("id"), &prompt)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeletePrompt(c fiber.Ctx) error {
	if err := h.promptService.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) PlaygroundChat(c fiber.Ctx) error {
	var req services.ChatRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	response, err := h.playgroundService.Chat(c.Context(), &req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(response)
}

func (h *APIHandlers) GetPlaygroundModels(c fiber.Ctx) error {
	models := h.playgroundService.Models()

	return c.JSON(fiber.Map{
		"models": models,
		"total":  len(models),
	})
}

func (h *APIHandlers) GetPlaygroundProviders(c fiber.Ctx) error {
	providers := h.playgroundService.Providers()

	return c.JSON(fiber.Map{
		"providers": providers,
		"total":     len(providers),
	})
}

func (h *APIHandlers) GetConversations(c fiber.Ctx) error {
	limit, offset, err := parsePagination(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	conversations, err := h.conversationService.List(c.Context(), limit, offset)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"conversations": conversations})
}

func (h *APIHandlers) GetConversation(c fiber.Ctx) error {
	conversation, err := h.conversationService.Get(c.Context(), c.Params("sessionId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(conversation)
}

func (h *APIHandlers) SaveConversation(c fiber.Ctx) error {
	var conversation models.Conversation
	if err := c.Bind().JSON(&conversation); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	conversation.SessionID = c.Params("sessionId")

	saved, err := h.conversationService.Save(c.Context(), &conversation)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(saved)
}

func (h *APIHandlers) DeleteConversation(c fiber.Ctx) error {
	if err := h.conversationService.Delete(c.Context(), c.Params("sessionId")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetNodeTypes(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"node_types": h.registry.Types()})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Road API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Road API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func parsePagination(c fiber.Ctx) (int, int, error) {
	limit, offset := 0, 0

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return 0, 0, err
		}

		limit = parsed
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		parsed, err := strconv.Atoi(offsetStr)
		if err != nil {
			return 0, 0, err
		}

		offset = parsed
	}

	return limit, offset, nil
}
