package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"chatflow-backend/internal/metrics"
	"chatflow-backend/internal/services"
	"chatflow-backend/pkg/models"
)

// ListChatflowsResponse wraps the flattened chatflow view records.
type ListChatflowsResponse struct {
	Chatflows []*models.ChatflowListItem `json:"chatflows"`
}

// StartGenerationRequest is the payload for starting background generation.
type StartGenerationRequest struct {
	Description   string `json:"description"`
	WorkspaceSlug string `json:"workspaceSlug"`
}

// StartGenerationResponse carries the ID to poll for generation status.
type StartGenerationResponse struct {
	WorkflowID string `json:"workflowId"`
}

// PublishChatflowRequest is the payload for publishing a chatflow directly.
type PublishChatflowRequest struct {
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	WorkspaceSlug string            `json:"workspaceSlug"`
	Schema        models.FormSchema `json:"schema"`
}

// ListChatflows returns every chatflow in the caller's workspaces
// (GET /api/chatflow?workspaceSlug=)
func (s *Server) ListChatflows(c echo.Context) error {
	profile, err := profileID(c)
	if err != nil {
		return err
	}

	items, err := s.Chatflows.ListChatflows(c.Request().Context(), profile, c.QueryParam("workspaceSlug"))
	if err != nil {
		return s.serviceError(c, err)
	}

	return c.JSON(http.StatusOK, ListChatflowsResponse{Chatflows: items})
}

// GenerationStatus reports whether a chatflow's schema has been generated
// (GET /api/chatflows/generate/:id)
func (s *Server) GenerationStatus(c echo.Context) error {
	if _, err := profileID(c); err != nil {
		return err
	}

	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "chatflow not found"})
	}

	status, err := s.Chatflows.GenerationStatus(c.Request().Context(), id)
	if err != nil {
		return s.serviceError(c, err)
	}

	return c.JSON(http.StatusOK, status)
}

// StartGeneration creates a placeholder chatflow and dispatches background
// schema generation
// (POST /api/chatflows/generate)
func (s *Server) StartGeneration(c echo.Context) error {
	profile, err := profileID(c)
	if err != nil {
		return err
	}

	var req StartGenerationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	id, err := s.Chatflows.StartGeneration(c.Request().Context(), profile, req.WorkspaceSlug, req.Description)
	if err != nil {
		return s.serviceError(c, err)
	}

	metrics.GenerationDispatches.Inc()
	return c.JSON(http.StatusOK, StartGenerationResponse{WorkflowID: id})
}

// PublishChatflow creates a complete chatflow with the supplied schema
// (POST /api/chatflows/publish)
func (s *Server) PublishChatflow(c echo.Context) error {
	profile, err := profileID(c)
	if err != nil {
		return err
	}

	var req PublishChatflowRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	chatflow, err := s.Chatflows.Publish(c.Request().Context(), profile, services.PublishInput{
		Name:          req.Name,
		Description:   req.Description,
		WorkspaceSlug: req.WorkspaceSlug,
		Schema:        req.Schema,
	})
	if err != nil {
		return s.serviceError(c, err)
	}

	metrics.ChatflowsPublished.Inc()
	return c.JSON(http.StatusOK, chatflow)
}

// TestWorkflow is an inert stub kept for frontend compatibility
// (GET /api/test-workflow)
func (s *Server) TestWorkflow(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "test workflow endpoint is disabled",
	})
}
