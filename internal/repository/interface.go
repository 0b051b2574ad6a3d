package repository

import (
	"context"
	"errors"
	"time"

	"chatflow-backend/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ChatflowListing is a chatflow row joined with its owning workspace and
// annotated with its submission count.
type ChatflowListing struct {
	ID            string
	Name          string
	Status        string
	Submissions   int
	WorkspaceName string
	WorkspaceSlug string
	CreatedAt     time.Time
}

// Repository is the persistence interface for the chatflow service.
type Repository interface {
	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// GetProfileByEmail retrieves a profile by its email address.
	GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
	// CreateProfile inserts a new profile, assigning an ID if missing.
	CreateProfile(ctx context.Context, profile *models.Profile) error

	// CreateWorkspace inserts a new workspace, assigning an ID if missing.
	CreateWorkspace(ctx context.Context, workspace *models.Workspace) error
	// GetWorkspaceBySlug retrieves a workspace by its URL slug.
	GetWorkspaceBySlug(ctx context.Context, slug string) (*models.Workspace, error)
	// ListWorkspacesForProfile returns every workspace the profile belongs to.
	ListWorkspacesForProfile(ctx context.Context, profileID string) ([]*models.Workspace, error)
	// AddWorkspaceMember links a profile to a workspace.
	AddWorkspaceMember(ctx context.Context, member *models.WorkspaceMember) error
	// IsWorkspaceMember reports whether the profile belongs to the workspace.
	IsWorkspaceMember(ctx context.Context, profileID, workspaceID string) (bool, error)

	// CreateChatflow inserts a new chatflow record.
	CreateChatflow(ctx context.Context, chatflow *models.Chatflow) error
	// GetChatflow retrieves a chatflow by its ID.
	GetChatflow(ctx context.Context, id string) (*models.Chatflow, error)
	// UpdateChatflowSchema replaces a chatflow's schema and status. The
	// background generation routine uses this to publish its result.
	UpdateChatflowSchema(ctx context.Context, id string, schema map[string]interface{}, status string) error
	// ListChatflows returns the chatflows in the given workspaces, newest
	// first, each with its submission count and workspace display fields.
	ListChatflows(ctx context.Context, workspaceIDs []string) ([]*ChatflowListing, error)
	// ShareURLExists reports whether a share slug is already taken.
	ShareURLExists(ctx context.Context, shareURL string) (bool, error)

	// CreateSubmission records a response collected by a chatflow.
	CreateSubmission(ctx context.Context, submission *models.Submission) error
	// CreateAuditLog appends an audit entry.
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}
