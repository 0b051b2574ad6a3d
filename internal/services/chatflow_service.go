package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chatflow-backend/internal/logging"
	"chatflow-backend/internal/repository"
	"chatflow-backend/pkg/models"
)

// Sentinel errors raised by chatflow operations. Handlers map these onto
// HTTP status codes.
var (
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrNotMember         = errors.New("not a member of this workspace")
	ErrChatflowNotFound  = errors.New("chatflow not found")
)

// minDescriptionLength is the shortest description accepted for generation.
const minDescriptionLength = 10

// engineDispatchTimeout bounds the fire-and-forget call to the workflow
// engine. The response to the caller has already been sent by then.
const engineDispatchTimeout = 30 * time.Second

// ValidationError carries field-level messages for a malformed request.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		msgs = append(msgs, field+": "+msg)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// GenerationStatus is the polling view of a chatflow's background generation.
type GenerationStatus struct {
	Status string                 `json:"status"`
	Result map[string]interface{} `json:"result,omitempty"`
}

// PublishInput is the payload for publishing a chatflow directly.
type PublishInput struct {
	Name          string
	Description   string
	WorkspaceSlug string
	Schema        models.FormSchema
}

// ChatflowService implements the chatflow operations on top of the
// repository and the workflow engine client.
type ChatflowService struct {
	repo   repository.Repository
	engine EngineClient
	logger *logging.Logger
}

// NewChatflowService creates a new ChatflowService.
func NewChatflowService(repo repository.Repository, engine EngineClient, logger *logging.Logger) *ChatflowService {
	return &ChatflowService{
		repo:   repo,
		engine: engine,
		logger: logger,
	}
}

// ListChatflows returns the chatflows in every workspace the caller belongs
// to, optionally narrowed to a single workspace slug. A filter that matches
// none of the caller's workspaces yields an empty list, not an error.
func (s *ChatflowService) ListChatflows(ctx context.Context, profileID, workspaceSlug string) ([]*models.ChatflowListItem, error) {
	workspaces, err := s.repo.ListWorkspacesForProfile(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}

	var workspaceIDs []string
	for _, workspace := range workspaces {
		if workspaceSlug != "" && workspace.Slug != workspaceSlug {
			continue
		}
		workspaceIDs = append(workspaceIDs, workspace.ID)
	}
	if len(workspaceIDs) == 0 {
		return []*models.ChatflowListItem{}, nil
	}

	listings, err := s.repo.ListChatflows(ctx, workspaceIDs)
	if err != nil {
		return nil, fmt.Errorf("listing chatflows: %w", err)
	}

	items := make([]*models.ChatflowListItem, 0, len(listings))
	for _, listing := range listings {
		items = append(items, &models.ChatflowListItem{
			ID:            listing.ID,
			Name:          listing.Name,
			Status:        listing.Status,
			Submissions:   listing.Submissions,
			WorkspaceName: listing.WorkspaceName,
			WorkspaceSlug: listing.WorkspaceSlug,
			Date:          listing.CreatedAt.Format("Jan 2, 2006"),
			RawDate:       listing.CreatedAt.Format(time.RFC3339),
		})
	}
	return items, nil
}

// GenerationStatus reports whether a chatflow's background generation has
// produced a schema yet. A schema that is empty or fails the shape check
// means the generation is still running.
func (s *ChatflowService) GenerationStatus(ctx context.Context, id string) (*GenerationStatus, error) {
	chatflow, err := s.repo.GetChatflow(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChatflowNotFound
		}
		return nil, fmt.Errorf("fetching chatflow: %w", err)
	}

	if !models.SchemaGenerated(chatflow.Schema) {
		return &GenerationStatus{Status: "running"}, nil
	}

	result := make(map[string]interface{}, len(chatflow.Schema)+1)
	for k, v := range chatflow.Schema {
		result[k] = v
	}
	result["name"] = chatflow.Name

	return &GenerationStatus{Status: "completed", Result: result}, nil
}

// StartGeneration inserts a placeholder chatflow and dispatches schema
// generation to the workflow engine. The dispatch is fire-and-forget: the
// chatflow ID is returned immediately and engine failures are only logged.
func (s *ChatflowService) StartGeneration(ctx context.Context, profileID, workspaceSlug, description string) (string, error) {
	if len(strings.TrimSpace(description)) < minDescriptionLength {
		return "", &ValidationError{Fields: map[string]string{
			"description": fmt.Sprintf("description must be at least %d characters", minDescriptionLength),
		}}
	}

	workspace, err := s.memberWorkspace(ctx, profileID, workspaceSlug)
	if err != nil {
		return "", err
	}

	shareURL, err := s.uniqueShareSlug(ctx)
	if err != nil {
		return "", err
	}

	chatflow := &models.Chatflow{
		WorkspaceID: workspace.ID,
		Name:        "Untitled chatflow",
		Description: description,
		Schema:      map[string]interface{}{},
		Status:      models.ChatflowStatusDraft,
		ShareURL:    shareURL,
	}
	if err := s.repo.CreateChatflow(ctx, chatflow); err != nil {
		return "", fmt.Errorf("creating placeholder chatflow: %w", err)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), engineDispatchTimeout)
		defer cancel()
		if err := s.engine.Generate(ctx, chatflow.ID, description); err != nil {
			s.logger.Error("chatflow generation dispatch failed",
				"chatflow_id", chatflow.ID, "error", err)
		}
	}()

	return chatflow.ID, nil
}

// Publish creates a complete chatflow with the supplied schema, assigns it a
// fresh share slug and records an audit entry for the action.
func (s *ChatflowService) Publish(ctx context.Context, profileID string, input PublishInput) (*models.Chatflow, error) {
	if err := validatePublish(input); err != nil {
		return nil, err
	}

	workspace, err := s.memberWorkspace(ctx, profileID, input.WorkspaceSlug)
	if err != nil {
		return nil, err
	}

	shareURL, err := s.uniqueShareSlug(ctx)
	if err != nil {
		return nil, err
	}

	chatflow := &models.Chatflow{
		WorkspaceID: workspace.ID,
		Name:        input.Name,
		Description: input.Description,
		Schema:      input.Schema.AsMap(),
		Status:      models.ChatflowStatusPublished,
		ShareURL:    shareURL,
	}
	if err := s.repo.CreateChatflow(ctx, chatflow); err != nil {
		return nil, fmt.Errorf("creating chatflow: %w", err)
	}

	// Best-effort: the chatflow is already committed, so an audit failure is
	// logged rather than surfaced.
	entry := &models.AuditLog{
		ActorID:      profileID,
		Action:       "chatflow.publish",
		ResourceType: "chatflow",
		ResourceID:   chatflow.ID,
		Payload: map[string]interface{}{
			"name":           chatflow.Name,
			"workspace_slug": workspace.Slug,
			"share_url":      chatflow.ShareURL,
			"field_count":    len(input.Schema.Fields),
		},
	}
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Error("audit log write failed",
			"action", entry.Action, "resource_id", entry.ResourceID, "error", err)
	}

	return chatflow, nil
}

// WorkspaceChatflows lists the chatflows of a single workspace without a
// membership scope. Used by the MCP read-only tools.
func (s *ChatflowService) WorkspaceChatflows(ctx context.Context, workspaceSlug string) ([]*models.ChatflowListItem, error) {
	workspace, err := s.repo.GetWorkspaceBySlug(ctx, workspaceSlug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("fetching workspace: %w", err)
	}

	listings, err := s.repo.ListChatflows(ctx, []string{workspace.ID})
	if err != nil {
		return nil, fmt.Errorf("listing chatflows: %w", err)
	}

	items := make([]*models.ChatflowListItem, 0, len(listings))
	for _, listing := range listings {
		items = append(items, &models.ChatflowListItem{
			ID:            listing.ID,
			Name:          listing.Name,
			Status:        listing.Status,
			Submissions:   listing.Submissions,
			WorkspaceName: listing.WorkspaceName,
			WorkspaceSlug: listing.WorkspaceSlug,
			Date:          listing.CreatedAt.Format("Jan 2, 2006"),
			RawDate:       listing.CreatedAt.Format(time.RFC3339),
		})
	}
	return items, nil
}

// memberWorkspace resolves a workspace by slug and verifies the caller
// belongs to it.
func (s *ChatflowService) memberWorkspace(ctx context.Context, profileID, workspaceSlug string) (*models.Workspace, error) {
	workspace, err := s.repo.GetWorkspaceBySlug(ctx, workspaceSlug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("fetching workspace: %w", err)
	}

	member, err := s.repo.IsWorkspaceMember(ctx, profileID, workspace.ID)
	if err != nil {
		return nil, fmt.Errorf("checking membership: %w", err)
	}
	if !member {
		return nil, ErrNotMember
	}
	return workspace, nil
}

// uniqueShareSlug generates share slugs until one is unused. The loop only
// retries on collisions; store errors abort it. The chatflows table carries a
// unique constraint on share_url as the final arbiter of a concurrent race.
func (s *ChatflowService) uniqueShareSlug(ctx context.Context) (string, error) {
	for {
		slug, err := newShareSlug()
		if err != nil {
			return "", fmt.Errorf("generating share slug: %w", err)
		}
		exists, err := s.repo.ShareURLExists(ctx, slug)
		if err != nil {
			return "", fmt.Errorf("checking share slug: %w", err)
		}
		if !exists {
			return slug, nil
		}
	}
}

func validatePublish(input PublishInput) error {
	fields := map[string]string{}
	if strings.TrimSpace(input.Name) == "" {
		fields["name"] = "name is required"
	}
	if strings.TrimSpace(input.WorkspaceSlug) == "" {
		fields["workspaceSlug"] = "workspaceSlug is required"
	}
	if len(input.Schema.Fields) == 0 {
		fields["schema"] = "schema must contain at least one field"
	}
	for i, field := range input.Schema.Fields {
		if field.Type == "" || field.Label == "" {
			fields["schema"] = fmt.Sprintf("field %d must have a type and a label", i)
			break
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
