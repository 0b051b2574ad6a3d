package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oapi-codegen/runtime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"chatflow-backend/pkg/models"
)

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, Schema); err != nil {
		t.Fatal(err)
	}

	store := NewPostgresStore(pool)

	// Shared fixtures referenced across subtests.
	owner := &models.Profile{Email: types.Email("owner@acme.com"), Name: "Owner"}
	workspace := &models.Workspace{Slug: "acme", Name: "Acme Inc"}

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})

	t.Run("Create and get profile", func(t *testing.T) {
		require.NoError(t, store.CreateProfile(ctx, owner))
		assert.NotEmpty(t, owner.ID)
		assert.False(t, owner.CreatedAt.IsZero())

		retrieved, err := store.GetProfileByEmail(ctx, "owner@acme.com")
		require.NoError(t, err)
		assert.Equal(t, owner.ID, retrieved.ID)
		assert.Equal(t, owner.Email, retrieved.Email)
		assert.Equal(t, "Owner", retrieved.Name)
	})

	t.Run("Profile not found", func(t *testing.T) {
		_, err := store.GetProfileByEmail(ctx, "ghost@acme.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Workspace and membership", func(t *testing.T) {
		require.NoError(t, store.CreateWorkspace(ctx, workspace))

		retrieved, err := store.GetWorkspaceBySlug(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, workspace.ID, retrieved.ID)
		assert.Equal(t, "Acme Inc", retrieved.Name)

		_, err = store.GetWorkspaceBySlug(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)

		member := &models.WorkspaceMember{ProfileID: owner.ID, WorkspaceID: workspace.ID, Role: "owner"}
		require.NoError(t, store.AddWorkspaceMember(ctx, member))

		isMember, err := store.IsWorkspaceMember(ctx, owner.ID, workspace.ID)
		require.NoError(t, err)
		assert.True(t, isMember)

		isMember, err = store.IsWorkspaceMember(ctx, uuid.New().String(), workspace.ID)
		require.NoError(t, err)
		assert.False(t, isMember)

		list, err := store.ListWorkspacesForProfile(ctx, owner.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "acme", list[0].Slug)
	})

	t.Run("Chatflow lifecycle", func(t *testing.T) {
		chatflow := &models.Chatflow{
			WorkspaceID: workspace.ID,
			Name:        "Untitled chatflow",
			Description: "Collect feedback from beta users",
			Status:      models.ChatflowStatusDraft,
			ShareURL:    "lifecycl",
		}
		require.NoError(t, store.CreateChatflow(ctx, chatflow))

		retrieved, err := store.GetChatflow(ctx, chatflow.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ChatflowStatusDraft, retrieved.Status)
		assert.Empty(t, retrieved.Schema)

		schema := map[string]interface{}{
			"fields": []interface{}{
				map[string]interface{}{"type": "text", "label": "Your name", "name": "name"},
			},
		}
		require.NoError(t, store.UpdateChatflowSchema(ctx, chatflow.ID, schema, models.ChatflowStatusDraft))

		retrieved, err = store.GetChatflow(ctx, chatflow.ID)
		require.NoError(t, err)
		fields, ok := retrieved.Schema["fields"].([]interface{})
		require.True(t, ok)
		assert.Len(t, fields, 1)

		err = store.UpdateChatflowSchema(ctx, uuid.New().String(), schema, models.ChatflowStatusDraft)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = store.GetChatflow(ctx, uuid.New().String())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ShareURLExists", func(t *testing.T) {
		exists, err := store.ShareURLExists(ctx, "lifecycl")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = store.ShareURLExists(ctx, "unused00")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("ListChatflows with counts and ordering", func(t *testing.T) {
		other := &models.Workspace{Slug: "other", Name: "Other Corp"}
		require.NoError(t, store.CreateWorkspace(ctx, other))

		first := &models.Chatflow{
			WorkspaceID: workspace.ID,
			Name:        "Old survey",
			Status:      models.ChatflowStatusPublished,
			ShareURL:    "oldsurv0",
		}
		require.NoError(t, store.CreateChatflow(ctx, first))
		// ORDER BY created_at DESC needs distinct timestamps
		time.Sleep(10 * time.Millisecond)
		second := &models.Chatflow{
			WorkspaceID: workspace.ID,
			Name:        "New survey",
			Status:      models.ChatflowStatusDraft,
			ShareURL:    "newsurv0",
		}
		require.NoError(t, store.CreateChatflow(ctx, second))
		hidden := &models.Chatflow{
			WorkspaceID: other.ID,
			Name:        "Elsewhere",
			Status:      models.ChatflowStatusDraft,
			ShareURL:    "elsewhr0",
		}
		require.NoError(t, store.CreateChatflow(ctx, hidden))

		for i := 0; i < 2; i++ {
			submission := &models.Submission{
				ChatflowID: first.ID,
				Data:       map[string]interface{}{"rating": i},
			}
			require.NoError(t, store.CreateSubmission(ctx, submission))
		}

		listings, err := store.ListChatflows(ctx, []string{workspace.ID})
		require.NoError(t, err)

		byName := map[string]*ChatflowListing{}
		var names []string
		for _, l := range listings {
			byName[l.Name] = l
			names = append(names, l.Name)
		}
		require.Contains(t, byName, "Old survey")
		require.Contains(t, byName, "New survey")
		assert.NotContains(t, byName, "Elsewhere")

		assert.Equal(t, 2, byName["Old survey"].Submissions)
		assert.Equal(t, 0, byName["New survey"].Submissions)
		assert.Equal(t, "Acme Inc", byName["Old survey"].WorkspaceName)
		assert.Equal(t, "acme", byName["Old survey"].WorkspaceSlug)

		// Newest first.
		newIdx, oldIdx := -1, -1
		for i, name := range names {
			switch name {
			case "New survey":
				newIdx = i
			case "Old survey":
				oldIdx = i
			}
		}
		assert.Less(t, newIdx, oldIdx)

		empty, err := store.ListChatflows(ctx, []string{})
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("Audit log", func(t *testing.T) {
		entry := &models.AuditLog{
			ActorID:      owner.ID,
			Action:       "chatflow.publish",
			ResourceType: "chatflow",
			ResourceID:   uuid.New().String(),
			Payload:      map[string]interface{}{"name": "Old survey"},
		}
		require.NoError(t, store.CreateAuditLog(ctx, entry))
		assert.NotEmpty(t, entry.ID)
		assert.False(t, entry.CreatedAt.IsZero())
	})
}
