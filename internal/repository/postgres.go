package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oapi-codegen/runtime/types"

	"chatflow-backend/pkg/models"
)

// PostgresStore is a PostgreSQL implementation of the Repository interface.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Ping verifies the store is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// GetProfileByEmail retrieves a profile by its email address.
func (s *PostgresStore) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	var addr string
	err := s.db.QueryRow(ctx,
		"SELECT id, email, name, created_at FROM profiles WHERE email = $1", email,
	).Scan(&profile.ID, &addr, &profile.Name, &profile.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	profile.Email = types.Email(addr)
	return &profile, nil
}

// CreateProfile inserts a new profile, assigning an ID if missing.
func (s *PostgresStore) CreateProfile(ctx context.Context, profile *models.Profile) error {
	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}
	return s.db.QueryRow(ctx,
		"INSERT INTO profiles (id, email, name) VALUES ($1, $2, $3) RETURNING created_at",
		profile.ID, string(profile.Email), profile.Name,
	).Scan(&profile.CreatedAt)
}

// CreateWorkspace inserts a new workspace, assigning an ID if missing.
func (s *PostgresStore) CreateWorkspace(ctx context.Context, workspace *models.Workspace) error {
	if workspace.ID == "" {
		workspace.ID = uuid.New().String()
	}
	return s.db.QueryRow(ctx,
		"INSERT INTO workspaces (id, slug, name) VALUES ($1, $2, $3) RETURNING created_at",
		workspace.ID, workspace.Slug, workspace.Name,
	).Scan(&workspace.CreatedAt)
}

// GetWorkspaceBySlug retrieves a workspace by its URL slug.
func (s *PostgresStore) GetWorkspaceBySlug(ctx context.Context, slug string) (*models.Workspace, error) {
	var workspace models.Workspace
	err := s.db.QueryRow(ctx,
		"SELECT id, slug, name, created_at FROM workspaces WHERE slug = $1", slug,
	).Scan(&workspace.ID, &workspace.Slug, &workspace.Name, &workspace.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &workspace, nil
}

// ListWorkspacesForProfile returns every workspace the profile belongs to.
func (s *PostgresStore) ListWorkspacesForProfile(ctx context.Context, profileID string) ([]*models.Workspace, error) {
	rows, err := s.db.Query(ctx, `
		SELECT w.id, w.slug, w.name, w.created_at
		FROM workspaces w
		JOIN workspace_members m ON m.workspace_id = w.id
		WHERE m.profile_id = $1
		ORDER BY w.name`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workspaces []*models.Workspace
	for rows.Next() {
		var workspace models.Workspace
		if err := rows.Scan(&workspace.ID, &workspace.Slug, &workspace.Name, &workspace.CreatedAt); err != nil {
			return nil, err
		}
		workspaces = append(workspaces, &workspace)
	}
	return workspaces, rows.Err()
}

// AddWorkspaceMember links a profile to a workspace.
func (s *PostgresStore) AddWorkspaceMember(ctx context.Context, member *models.WorkspaceMember) error {
	if member.Role == "" {
		member.Role = "member"
	}
	return s.db.QueryRow(ctx,
		"INSERT INTO workspace_members (profile_id, workspace_id, role) VALUES ($1, $2, $3) RETURNING created_at",
		member.ProfileID, member.WorkspaceID, member.Role,
	).Scan(&member.CreatedAt)
}

// IsWorkspaceMember reports whether the profile belongs to the workspace.
func (s *PostgresStore) IsWorkspaceMember(ctx context.Context, profileID, workspaceID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM workspace_members WHERE profile_id = $1 AND workspace_id = $2)",
		profileID, workspaceID,
	).Scan(&exists)
	return exists, err
}

// CreateChatflow inserts a new chatflow record.
func (s *PostgresStore) CreateChatflow(ctx context.Context, chatflow *models.Chatflow) error {
	if chatflow.ID == "" {
		chatflow.ID = uuid.New().String()
	}
	if chatflow.Schema == nil {
		chatflow.Schema = map[string]interface{}{}
	}
	return s.db.QueryRow(ctx, `
		INSERT INTO chatflows (id, workspace_id, name, description, schema, status, share_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		chatflow.ID, chatflow.WorkspaceID, chatflow.Name, chatflow.Description,
		chatflow.Schema, chatflow.Status, chatflow.ShareURL,
	).Scan(&chatflow.CreatedAt)
}

// GetChatflow retrieves a chatflow by its ID.
func (s *PostgresStore) GetChatflow(ctx context.Context, id string) (*models.Chatflow, error) {
	var chatflow models.Chatflow
	err := s.db.QueryRow(ctx, `
		SELECT id, workspace_id, name, description, schema, status, share_url, created_at
		FROM chatflows WHERE id = $1`, id,
	).Scan(&chatflow.ID, &chatflow.WorkspaceID, &chatflow.Name, &chatflow.Description,
		&chatflow.Schema, &chatflow.Status, &chatflow.ShareURL, &chatflow.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &chatflow, nil
}

// UpdateChatflowSchema replaces a chatflow's schema and status.
func (s *PostgresStore) UpdateChatflowSchema(ctx context.Context, id string, schema map[string]interface{}, status string) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE chatflows SET schema = $1, status = $2 WHERE id = $3",
		schema, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListChatflows returns the chatflows in the given workspaces, newest first.
func (s *PostgresStore) ListChatflows(ctx context.Context, workspaceIDs []string) ([]*ChatflowListing, error) {
	if len(workspaceIDs) == 0 {
		return []*ChatflowListing{}, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT c.id, c.name, c.status, count(s.id), w.name, w.slug, c.created_at
		FROM chatflows c
		JOIN workspaces w ON w.id = c.workspace_id
		LEFT JOIN submissions s ON s.chatflow_id = c.id
		WHERE c.workspace_id = ANY($1)
		GROUP BY c.id, w.name, w.slug
		ORDER BY c.created_at DESC`, workspaceIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := []*ChatflowListing{}
	for rows.Next() {
		var listing ChatflowListing
		if err := rows.Scan(&listing.ID, &listing.Name, &listing.Status, &listing.Submissions,
			&listing.WorkspaceName, &listing.WorkspaceSlug, &listing.CreatedAt); err != nil {
			return nil, err
		}
		listings = append(listings, &listing)
	}
	return listings, rows.Err()
}

// ShareURLExists reports whether a share slug is already taken.
func (s *PostgresStore) ShareURLExists(ctx context.Context, shareURL string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM chatflows WHERE share_url = $1)", shareURL,
	).Scan(&exists)
	return exists, err
}

// CreateSubmission records a response collected by a chatflow.
func (s *PostgresStore) CreateSubmission(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.New().String()
	}
	if submission.Data == nil {
		submission.Data = map[string]interface{}{}
	}
	return s.db.QueryRow(ctx,
		"INSERT INTO submissions (id, chatflow_id, data) VALUES ($1, $2, $3) RETURNING created_at",
		submission.ID, submission.ChatflowID, submission.Data,
	).Scan(&submission.CreatedAt)
}

// CreateAuditLog appends an audit entry.
func (s *PostgresStore) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Payload == nil {
		entry.Payload = map[string]interface{}{}
	}
	return s.db.QueryRow(ctx, `
		INSERT INTO audit_logs (id, actor_id, action, resource_type, resource_id, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		entry.ID, entry.ActorID, entry.Action, entry.ResourceType, entry.ResourceID, entry.Payload,
	).Scan(&entry.CreatedAt)
}

func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
