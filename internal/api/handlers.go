// Package api contains the HTTP handlers for the chatflow service
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"chatflow-backend/internal/logging"
	"chatflow-backend/internal/services"
)

// Server holds the dependencies for the API handlers.
type Server struct {
	Chatflows *services.ChatflowService
	Logger    *logging.Logger
}

// NewServer creates a new Server.
func NewServer(chatflows *services.ChatflowService, logger *logging.Logger) *Server {
	return &Server{Chatflows: chatflows, Logger: logger}
}

// RegisterRoutes mounts the chatflow routes on the given (authenticated)
// group.
func (s *Server) RegisterRoutes(g *echo.Group) {
	g.GET("/chatflow", s.ListChatflows)
	g.GET("/chatflows/generate/:id", s.GenerationStatus)
	g.POST("/chatflows/generate", s.StartGeneration)
	g.POST("/chatflows/publish", s.PublishChatflow)
	g.GET("/test-workflow", s.TestWorkflow)
}

// errorResponse is the JSON error envelope returned by every route.
type errorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// HealthStatus represents the health check response.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
}

// HandleHealth returns basic health status (always returns 200 OK).
func (s *Server) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Service:   "chatflow-backend",
		Version:   "1.0.0",
	})
}

// profileID extracts the authenticated caller's profile ID injected by the
// auth gate. Handlers behind RequireAuth always see a non-empty value; a
// missing one means the route was mounted outside the gate.
func profileID(c echo.Context) (string, error) {
	id, ok := c.Request().Context().Value("profile_id").(string)
	if !ok || id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "profile not found in context")
	}
	return id, nil
}

// serviceError converts a service-layer error into the JSON error envelope.
func (s *Server) serviceError(c echo.Context, err error) error {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error:   "validation failed",
			Details: verr.Fields,
		})
	case errors.Is(err, services.ErrWorkspaceNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "workspace not found"})
	case errors.Is(err, services.ErrChatflowNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "chatflow not found"})
	case errors.Is(err, services.ErrNotMember):
		return c.JSON(http.StatusForbidden, errorResponse{Error: "not a member of this workspace"})
	default:
		s.Logger.Error("internal error", "path", c.Path(), "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
