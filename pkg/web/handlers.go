// Package web provides HTTP handlers and REST API endpoints for workflow
// and run management.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/chainrun/chainrun/pkg/connectors"
	"github.com/chainrun/chainrun/pkg/models"
	"github.com/chainrun/chainrun/pkg/services"
	"github.com/chainrun/chainrun/pkg/yamlio"
)

type APIHandlers struct {
	workflowService *services.Workflow
	runService      *services.Run
	scheduleService *services.Schedule
	validator       *validator.Validate
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	runService *services.Run,
	scheduleService *services.Schedule,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		workflowService: workflowService,
		runService:      runService,
		scheduleService: scheduleService,
		validator:       validator,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// GetConnectors lists the supported component types with their config
// schemas.
func (h *APIHandlers) GetConnectors(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"connectors": connectors.Catalog()})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	req, err := h.parseListWorkflowsRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.workflowService.List(c.Context(), *req)
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

// parseListWorkflowsRequest parses and validates query parameters for listing workflows.
func (h *APIHandlers) parseListWorkflowsRequest(c fiber.Ctx) (*services.ListWorkflowsRequest, error) {
	req := &services.ListWorkflowsRequest{}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		req.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, err
		}

		req.Offset = offset
	}

	req.Owner = c.Query("owner")

	if activeStr := c.Query("active"); activeStr != "" {
		active, err := strconv.ParseBool(activeStr)
		if err != nil {
			return nil, err
		}

		req.Active = &active
	}

	return req, nil
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow := &models.Workflow{
		Name:           req.Name,
		Description:    req.Description,
		ValidationMode: models.ValidationMode(req.ValidationMode),
		Components:     req.Components,
		Connections:    req.Connections,
		CreatedBy:      req.Owner,
	}

	created, err := h.workflowService.Create(c.Context(), workflow)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.workflowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.ValidationMode != nil {
		existing.ValidationMode = models.ValidationMode(*req.ValidationMode)
	}

	if req.Active != nil {
		existing.Active = *req.Active
	}

	if req.Components != nil {
		existing.Components = req.Components
	}

	if req.Connections != nil {
		existing.Connections = req.Connections
	}

	updated, err := h.workflowService.Update(c.Context(), id, existing)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.workflowService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ExportWorkflowYAML renders the workflow as its canonical YAML document.
func (h *APIHandlers) ExportWorkflowYAML(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	out, err := yamlio.Export(workflow)
	if err != nil {
		return internalError(c, err)
	}

	c.Set(fiber.HeaderContentType, "application/yaml")

	return c.Send(out)
}

// ImportWorkflowYAML creates a workflow from a YAML document body, or
// replaces the definition when the document names an existing workflow ID.
func (h *APIHandlers) ImportWorkflowYAML(c fiber.Ctx) error {
	workflow, err := yamlio.Import(c.Body())
	if err != nil {
		return handleServiceError(c, err)
	}

	if workflow.ID != "" {
		existing, err := h.workflowService.FetchByID(c.Context(), workflow.ID)
		if err == nil && existing != nil {
			// Activation is operational state, not part of the document.
			workflow.Active = existing.Active

			updated, err := h.workflowService.Update(c.Context(), workflow.ID, workflow)
			if err != nil {
				return handleServiceError(c, err)
			}

			return c.JSON(updated)
		}

		if !services.IsNotFoundError(err) {
			return handleServiceError(c, err)
		}
	}

	created, err := h.workflowService.Create(c.Context(), workflow)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// StartRun starts a full run of the workflow.
func (h *APIHandlers) StartRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req StartRunRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	run, err := h.runService.StartFullRun(c.Context(), id, req.ValidationEnabled)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(run)
}

// StartSubRun starts a run over a contiguous slice of the workflow chain.
func (h *APIHandlers) StartSubRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req StartSubRunRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	includeStart := req.IncludeStart == nil || *req.IncludeStart
	includeEnd := req.IncludeEnd == nil || *req.IncludeEnd

	run, err := h.runService.StartSubRun(c.Context(), id,
		req.StartComponentID, req.EndComponentID,
		includeStart, includeEnd, req.ValidationEnabled)
	if err != nil {
		return handleServiceError(c, err)
	}

	// A vacuous range finishes at creation time; everything else is queued.
	status := fiber.StatusAccepted
	if run.Status.IsTerminal() {
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(run)
}

// GetWorkflowRuns lists the workflow's runs, newest first. The kind query
// parameter filters to full or sub runs.
func (h *APIHandlers) GetWorkflowRuns(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	kind := models.RunKind(c.Query("kind"))
	if kind != "" && kind != models.RunKindFull && kind != models.RunKindSub {
		return badRequest(c, "kind must be 'full' or 'sub'")
	}

	runs, err := h.runService.ListRuns(c.Context(), id, kind)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"runs": runs})
}

// GetRun returns a run with its per-component status rows.
func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	status, err := h.runService.GetRunStatus(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(status)
}

// CancelRun requests cancellation of a pending or running run.
func (h *APIHandlers) CancelRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	run, err := h.runService.Cancel(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(run)
}

// RetryComponent performs one manual attempt of a failed or skipped
// component in a finished run.
func (h *APIHandlers) RetryComponent(c fiber.Ctx) error {
	runID := c.Params("id")
	componentID := c.Params("componentId")

	if runID == "" || componentID == "" {
		return badRequest(c, "Run ID and component ID are required")
	}

	status, err := h.runService.RetryComponent(c.Context(), runID, componentID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(status)
}

func (h *APIHandlers) CreateSchedule(c fiber.Ctx) error {
	var req CreateScheduleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	schedule, err := h.scheduleService.Create(c.Context(), req.WorkflowID, req.CronExpression, req.ValidationEnabled)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(schedule)
}

func (h *APIHandlers) GetSchedules(c fiber.Ctx) error {
	schedules, err := h.scheduleService.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"schedules": schedules})
}

func (h *APIHandlers) DeleteSchedule(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Schedule ID is required")
	}

	if err := h.scheduleService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
