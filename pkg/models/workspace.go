package models

import (
	"time"

	"github.com/oapi-codegen/runtime/types"
)

// Profile is an authenticated user. Profiles are auto-provisioned by the auth
// gate the first time an email is seen.
type Profile struct {
	ID        string      `json:"id"`
	Email     types.Email `json:"email"`
	Name      string      `json:"name"`
	CreatedAt time.Time   `json:"created_at"`
}

// Workspace is the tenant scoping membership and chatflow ownership.
type Workspace struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// WorkspaceMember links a profile to a workspace. Membership determines
// authorization for every chatflow operation.
type WorkspaceMember struct {
	ProfileID   string    `json:"profile_id"`
	WorkspaceID string    `json:"workspace_id"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}
