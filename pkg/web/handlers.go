// Package web provides HTTP handlers and REST API endpoints for workflow management.
package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/nurture/pkg/mergetag"
	"github.com/dukex/nurture/pkg/models"
	"github.com/dukex/nurture/pkg/persistence"
	"github.com/dukex/nurture/pkg/protocol"
	"github.com/dukex/nurture/pkg/registry"
	"github.com/dukex/nurture/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// EnrollmentService is the read and cancel surface of the engine the API exposes.
type EnrollmentService interface {
	Enrollment(ctx context.Context, id string) (*models.Enrollment, error)
	Enrollments(ctx context.Context, filter persistence.EnrollmentFilter) ([]*models.Enrollment, error)
	Executions(ctx context.Context, enrollmentID string) ([]*models.StepExecution, error)
	Exit(ctx context.Context, enrollmentID, reason string) (*models.Enrollment, error)
}

type APIHandlers struct {
	workflowService   *services.Workflow
	publishingService *services.Publishing
	enrollments       EnrollmentService
	events            protocol.TriggerEmitter
	mergeTags         *mergetag.Engine
	validator         *validator.Validate
	registry          *registry.Registry
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	publishingService *services.Publishing,
	enrollments EnrollmentService,
	events protocol.TriggerEmitter,
	mergeTags *mergetag.Engine,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		workflowService:   workflowService,
		publishingService: publishingService,
		enrollments:       enrollments,
		events:            events,
		mergeTags:         mergeTags,
		validator:         validator,
		registry:          registry,
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	req, err := h.parseListWorkflowsRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.workflowService.ListWorkflows(c.Context(), *req)
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

// parseListWorkflowsRequest parses query parameters for listing workflows.
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

	req.Status = models.WorkflowStatus(c.Query("status"))
	req.TriggerType = c.Query("trigger_type")

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

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	actions := len(h.registry.GetAvailableActions())
	regOk := actions > 0
	registryCheck := strconv.Itoa(actions) + " actions registered"

	status := "unhealthy"
	message := "Nurture API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Nurture API is healthy"
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

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow := &models.Workflow{
		Name:          req.Name,
		Description:   req.Description,
		TriggerType:   req.TriggerType,
		TriggerConfig: req.TriggerConfig,
		Steps:         req.Steps,
		Connections:   req.Connections,
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

	if req.TriggerType != nil {
		existing.TriggerType = *req.TriggerType
	}

	if req.TriggerConfig != nil {
		existing.TriggerConfig = req.TriggerConfig
	}

	// steps and connections are replaced together so edges never point at dropped steps
	if req.Steps != nil {
		existing.Steps = req.Steps
		existing.Connections = req.Connections
	} else if req.Connections != nil {
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

func (h *APIHandlers) PublishWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	published, err := h.publishingService.PublishWorkflow(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(published)
}

func (h *APIHandlers) PauseWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	paused, err := h.publishingService.PauseWorkflow(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(paused)
}

func (h *APIHandlers) GetEnrollments(c fiber.Ctx) error {
	filter := persistence.EnrollmentFilter{
		WorkflowID: c.Query("workflow_id"),
		ContactID:  c.Query("contact_id"),
		Status:     models.EnrollmentStatus(c.Query("status")),
	}

	enrollments, err := h.enrollments.Enrollments(c.Context(), filter)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"enrollments": enrollments})
}

func (h *APIHandlers) GetEnrollment(c fiber.Ctx) error {
	enrollment, err := h.enrollments.Enrollment(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(enrollment)
}

func (h *APIHandlers) GetEnrollmentExecutions(c fiber.Ctx) error {
	id := c.Params("id")

	if _, err := h.enrollments.Enrollment(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	executions, err := h.enrollments.Executions(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"executions": executions})
}

func (h *APIHandlers) ExitEnrollment(c fiber.Ctx) error {
	var req ExitEnrollmentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	enrollment, err := h.enrollments.Exit(c.Context(), c.Params("id"), req.Reason)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(enrollment)
}

// PostEvent accepts a domain event and hands it to trigger dispatch asynchronously.
func (h *APIHandlers) PostEvent(c fiber.Ctx) error {
	var event models.TriggerEvent
	if err := c.Bind().JSON(&event); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(event); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.events.EmitTrigger(c.Context(), event); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"trigger_type": event.TriggerType,
		"contact_id":   event.ContactID,
	})
}

func (h *APIHandlers) ValidateMergeTags(c fiber.Ctx) error {
	var req MergeTagRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	errors := h.mergeTags.ValidateForTrigger(req.Text, req.TriggerType)

	return c.JSON(MergeTagValidationResponse{
		Valid:     len(errors) == 0,
		Variables: mergetag.ExtractVariables(req.Text),
		Errors:    errors,
	})
}

func (h *APIHandlers) PreviewMergeTags(c fiber.Ctx) error {
	var req MergeTagRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	return c.JSON(fiber.Map{"preview": h.mergeTags.Preview(req.Text)})
}

func (h *APIHandlers) GetAvailableActions(c fiber.Ctx) error {
	factories := h.registry.GetAvailableActions()

	actions := make([]ActionResponse, 0, len(factories))
	for _, factory := range factories {
		actions = append(actions, TransformActionResponse(factory))
	}

	return c.JSON(fiber.Map{"actions": actions})
}
