// Package web provides the REST API over the enrollment engine and the node
// executor registry.
package web

import (
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/cadenzahq/cadenza/pkg/enrollment"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence"
	"github.com/cadenzahq/cadenza/pkg/protocol"
	"github.com/cadenzahq/cadenza/pkg/registry"
	"github.com/cadenzahq/cadenza/pkg/template"
)

type APIHandlers struct {
	store      persistence.Persistence
	enrollment *enrollment.Engine
	registry   *registry.Registry
	deps       protocol.Deps
	validator  *validator.Validate
	logger     *slog.Logger
}

func NewAPIHandlers(
	store persistence.Persistence,
	engine *enrollment.Engine,
	reg *registry.Registry,
	deps protocol.Deps,
	validate *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		store:      store,
		enrollment: engine,
		registry:   reg,
		deps:       deps,
		validator:  validate,
		logger:     logger.With("module", "api"),
	}
}

type enrollRequest struct {
	ContactID string `json:"contact_id" validate:"required"`
}

// EnrollContact handles POST /sequences/:id/enrollments.
func (h *APIHandlers) EnrollContact(c fiber.Ctx) error {
	sequenceID := c.Params("id")

	var req enrollRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.enrollment.EnrollContact(c.Context(), sequenceID, req.ContactID)
	if err != nil {
		return handleDomainError(c, err)
	}

	if result.Skipped != "" {
		return c.JSON(fiber.Map{
			"enrolled":       false,
			"skipped_reason": result.Skipped,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"enrolled":   true,
		"enrollment": result.Enrollment,
	})
}

// EnrollAudience handles POST /sequences/:id/enrollments/bulk.
func (h *APIHandlers) EnrollAudience(c fiber.Ctx) error {
	sequenceID := c.Params("id")

	result, err := h.enrollment.EnrollAudience(c.Context(), sequenceID)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(result)
}

// GetSequences handles GET /sequences?workspace_id=...
func (h *APIHandlers) GetSequences(c fiber.Ctx) error {
	workspaceID := c.Query("workspace_id")
	if workspaceID == "" {
		return badRequest(c, "workspace_id query parameter is required")
	}

	sequences, err := h.store.SequencesByWorkspace(c.Context(), workspaceID)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(fiber.Map{
		"sequences":   sequences,
		"total_count": len(sequences),
	})
}

type executeNodeRequest struct {
	NodeID      string         `json:"node_id"      validate:"required"`
	WorkspaceID string         `json:"workspace_id" validate:"required"`
	Config      map[string]any `json:"config"`
	TriggerData map[string]any `json:"trigger_data"`
	Values      map[string]any `json:"values"`
}

// ExecuteNode handles POST /nodes/:type/execute: a single ad hoc node run
// outside any stored workflow.
func (h *APIHandlers) ExecuteNode(c fiber.Ctx) error {
	nodeType := c.Params("type")

	var req executeNodeRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	executor, err := h.registry.CreateExecutor(nodeType, req.Config)
	if err != nil {
		return badRequest(c, err.Error())
	}

	execCtx := models.ExecutionContext{
		ID:          req.NodeID,
		WorkspaceID: req.WorkspaceID,
		TriggerData: req.TriggerData,
		Values:      req.Values,
	}

	deltas, err := executor.Execute(c.Context(), h.deps, models.NodeRequest{
		NodeID:  req.NodeID,
		Type:    nodeType,
		Config:  req.Config,
		Context: execCtx,
	}, h.logger)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(fiber.Map{
		"node_id": req.NodeID,
		"deltas":  deltas,
		"context": execCtx.Merge(deltas),
	})
}

// StopEnrollment handles POST /enrollments/:id/stop.
func (h *APIHandlers) StopEnrollment(c fiber.Ctx) error {
	enrollmentID := c.Params("id")

	stopped, err := h.enrollment.Stop(c.Context(), enrollmentID)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(stopped)
}

// GetTokens handles GET /tokens: the closed template token registry, for
// editor autocomplete.
func (h *APIHandlers) GetTokens(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"tokens": template.Tokens()})
}

// GetNodeTypes handles GET /nodes: registered executor types and their
// config schemas.
func (h *APIHandlers) GetNodeTypes(c fiber.Ctx) error {
	types := h.registry.AvailableTypes()

	schemas := make(map[string]any, len(types))

	for _, t := range types {
		if factory, ok := h.registry.Factory(t); ok {
			schemas[t] = fiber.Map{
				"name":        factory.Name(),
				"description": factory.Description(),
				"schema":      factory.Schema(),
			}
		}
	}

	return c.JSON(fiber.Map{"node_types": schemas})
}

// HealthCheck handles GET /health.
func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryDetails, registryHealthy := h.registry.HealthCheck()

	storeHealthy := true
	if err := h.store.HealthCheck(c.Context()); err != nil {
		storeHealthy = false
	}

	status := fiber.StatusOK
	if !registryHealthy || !storeHealthy {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"healthy":     registryHealthy && storeHealthy,
		"persistence": storeHealthy,
		"registry":    registryDetails,
	})
}
