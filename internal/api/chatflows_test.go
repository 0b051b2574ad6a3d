package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"chatflow-backend/internal/logging"
	"chatflow-backend/internal/repository"
	"chatflow-backend/internal/services"
	"chatflow-backend/pkg/models"
)

// fakeRepo is an in-memory repository.Repository for handler tests.
type fakeRepo struct {
	profileWorkspaces []*models.Workspace
	workspacesBySlug  map[string]*models.Workspace
	memberships       map[string]bool // profileID + "|" + workspaceID
	chatflows         map[string]*models.Chatflow
	listings          []*repository.ChatflowListing
	shareURLs         map[string]bool
	created           []*models.Chatflow
	audits            []*models.AuditLog
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		workspacesBySlug: map[string]*models.Workspace{},
		memberships:      map[string]bool{},
		chatflows:        map[string]*models.Chatflow{},
		shareURLs:        map[string]bool{},
	}
}

func (f *fakeRepo) Ping(ctx context.Context) error { return nil }

func (f *fakeRepo) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeRepo) CreateProfile(ctx context.Context, profile *models.Profile) error { return nil }

func (f *fakeRepo) CreateWorkspace(ctx context.Context, workspace *models.Workspace) error {
	f.workspacesBySlug[workspace.Slug] = workspace
	return nil
}

func (f *fakeRepo) GetWorkspaceBySlug(ctx context.Context, slug string) (*models.Workspace, error) {
	workspace, ok := f.workspacesBySlug[slug]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return workspace, nil
}

func (f *fakeRepo) ListWorkspacesForProfile(ctx context.Context, profileID string) ([]*models.Workspace, error) {
	return f.profileWorkspaces, nil
}

func (f *fakeRepo) AddWorkspaceMember(ctx context.Context, member *models.WorkspaceMember) error {
	f.memberships[member.ProfileID+"|"+member.WorkspaceID] = true
	return nil
}

func (f *fakeRepo) IsWorkspaceMember(ctx context.Context, profileID, workspaceID string) (bool, error) {
	return f.memberships[profileID+"|"+workspaceID], nil
}

func (f *fakeRepo) CreateChatflow(ctx context.Context, chatflow *models.Chatflow) error {
	if chatflow.ID == "" {
		chatflow.ID = "cf-" + chatflow.ShareURL
	}
	chatflow.CreatedAt = time.Now()
	f.chatflows[chatflow.ID] = chatflow
	f.shareURLs[chatflow.ShareURL] = true
	f.created = append(f.created, chatflow)
	return nil
}

func (f *fakeRepo) GetChatflow(ctx context.Context, id string) (*models.Chatflow, error) {
	chatflow, ok := f.chatflows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return chatflow, nil
}

func (f *fakeRepo) UpdateChatflowSchema(ctx context.Context, id string, schema map[string]interface{}, status string) error {
	chatflow, ok := f.chatflows[id]
	if !ok {
		return repository.ErrNotFound
	}
	chatflow.Schema = schema
	chatflow.Status = status
	return nil
}

func (f *fakeRepo) ListChatflows(ctx context.Context, workspaceIDs []string) ([]*repository.ChatflowListing, error) {
	return f.listings, nil
}

func (f *fakeRepo) ShareURLExists(ctx context.Context, shareURL string) (bool, error) {
	return f.shareURLs[shareURL], nil
}

func (f *fakeRepo) CreateSubmission(ctx context.Context, submission *models.Submission) error {
	return nil
}

func (f *fakeRepo) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	f.audits = append(f.audits, entry)
	return nil
}

// nopEngine discards generation dispatches.
type nopEngine struct{}

func (nopEngine) Generate(ctx context.Context, chatflowID, description string) error { return nil }

const testProfileID = "11111111-1111-1111-1111-111111111111"

// newTestServer wires the handlers over the fake repo with a middleware that
// plays the auth gate's role of injecting profile_id.
func newTestServer(repo repository.Repository) *echo.Echo {
	logger := logging.NewLogger()
	svc := services.NewChatflowService(repo, nopEngine{}, logger)
	handler := NewServer(svc, logger)

	e := echo.New()
	g := e.Group("/api")
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := context.WithValue(c.Request().Context(), "profile_id", testProfileID)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	handler.RegisterRoutes(g)
	return e
}

func doJSON(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func memberWorkspace(repo *fakeRepo) *models.Workspace {
	workspace := &models.Workspace{ID: "ws-1", Slug: "acme", Name: "Acme Inc"}
	repo.workspacesBySlug["acme"] = workspace
	repo.memberships[testProfileID+"|ws-1"] = true
	repo.profileWorkspaces = []*models.Workspace{workspace}
	return workspace
}

func TestListChatflows_UnknownSlugReturnsEmptyList(t *testing.T) {
	repo := newFakeRepo()
	memberWorkspace(repo)
	e := newTestServer(repo)

	rec := doJSON(e, http.MethodGet, "/api/chatflow?workspaceSlug=ghost", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp ListChatflowsResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Chatflows)
	assert.Empty(t, resp.Chatflows)
}

func TestListChatflows_ReturnsViewRecords(t *testing.T) {
	repo := newFakeRepo()
	memberWorkspace(repo)
	repo.listings = []*repository.ChatflowListing{{
		ID:            "cf-1",
		Name:          "Customer Feedback",
		Status:        models.ChatflowStatusPublished,
		Submissions:   2,
		WorkspaceName: "Acme Inc",
		WorkspaceSlug: "acme",
		CreatedAt:     time.Date(2026, time.January, 5, 12, 0, 0, 0, time.UTC),
	}}
	e := newTestServer(repo)

	rec := doJSON(e, http.MethodGet, "/api/chatflow", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp ListChatflowsResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Chatflows, 1)
	assert.Equal(t, "Jan 5, 2026", resp.Chatflows[0].Date)
	assert.Equal(t, 2, resp.Chatflows[0].Submissions)
}

func TestGenerationStatus_UnknownIDReturns404(t *testing.T) {
	repo := newFakeRepo()
	e := newTestServer(repo)

	rec := doJSON(e, http.MethodGet, "/api/chatflows/generate/22222222-2222-2222-2222-222222222222", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "chatflow not found")
}

func TestGenerationStatus_MalformedIDReturns404(t *testing.T) {
	repo := newFakeRepo()
	e := newTestServer(repo)

	rec := doJSON(e, http.MethodGet, "/api/chatflows/generate/not-a-uuid", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerationStatus_RunningAndCompleted(t *testing.T) {
	repo := newFakeRepo()
	repo.chatflows["33333333-3333-3333-3333-333333333333"] = &models.Chatflow{
		ID:     "33333333-3333-3333-3333-333333333333",
		Name:   "Beta Signup",
		Schema: map[string]interface{}{},
	}
	e := newTestServer(repo)

	rec := doJSON(e, http.MethodGet, "/api/chatflows/generate/33333333-3333-3333-3333-333333333333", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"running"}`, rec.Body.String())

	repo.chatflows["33333333-3333-3333-3333-333333333333"].Schema = map[string]interface{}{
		"fields": []interface{}{
			map[string]interface{}{"type": "text", "label": "Name"},
		},
	}

	rec = doJSON(e, http.MethodGet, "/api/chatflows/generate/33333333-3333-3333-3333-333333333333", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var status services.GenerationStatus
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "completed", status.Status)
	assert.Equal(t, "Beta Signup", status.Result["name"])
}

func TestStartGeneration_ShortDescriptionReturns400(t *testing.T) {
	repo := newFakeRepo()
	memberWorkspace(repo)
	e := newTestServer(repo)

	rec := doJSON(e, http.MethodPost, "/api/chatflows/generate",
		`{"description":"too short","workspaceSlug":"acme"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at least 10 characters")
}

func TestStartGeneration_UnknownWorkspaceReturns404(t *testing.T) {
	repo := newFakeRepo()
	e := newTestServer(repo)

	rec := doJSON(e, http.MethodPost, "/api/chatflows/generate",
		`{"description":"a perfectly fine description","workspaceSlug":"ghost"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "workspace not found")
}

func TestStartGeneration_NonMemberReturns403(t *testing.T) {
	repo := newFakeRepo()
	repo.workspacesBySlug["acme"] = &models.Workspace{ID: "ws-1", Slug: "acme"}
	e := newTestServer(repo)

	rec := doJSON(e, http.MethodPost, "/api/chatflows/generate",
		`{"description":"a perfectly fine description","workspaceSlug":"acme"}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStartGeneration_ReturnsWorkflowID(t *testing.T) {
	repo := newFakeRepo()
	memberWorkspace(repo)
	e := newTestServer(repo)

	rec := doJSON(e, http.MethodPost, "/api/chatflows/generate",
		`{"description":"a signup form for the beta program","workspaceSlug":"acme"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp StartGenerationResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.WorkflowID)

	created := repo.chatflows[resp.WorkflowID]
	assert.NotNil(t, created)
	assert.Equal(t, models.ChatflowStatusDraft, created.Status)
	assert.Empty(t, created.Schema)
}

func TestPublishChatflow_CreatesPublishedRecord(t *testing.T) {
	repo := newFakeRepo()
	memberWorkspace(repo)
	e := newTestServer(repo)

	rec := doJSON(e, http.MethodPost, "/api/chatflows/publish",
		`{"name":"Customer Feedback","workspaceSlug":"acme","schema":{"fields":[{"type":"text","label":"Name"}]}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var chatflow models.Chatflow
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chatflow))
	assert.Equal(t, "PUBLISHED", chatflow.Status)
	assert.Regexp(t, `^[a-z0-9]{8}$`, chatflow.ShareURL)
	assert.Len(t, repo.audits, 1)
}

func TestPublishChatflow_MissingSchemaReturns400(t *testing.T) {
	repo := newFakeRepo()
	memberWorkspace(repo)
	e := newTestServer(repo)

	rec := doJSON(e, http.MethodPost, "/api/chatflows/publish",
		`{"name":"Customer Feedback","workspaceSlug":"acme","schema":{"fields":[]}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "schema")
}

func TestTestWorkflowStub(t *testing.T) {
	repo := newFakeRepo()
	e := newTestServer(repo)

	rec := doJSON(e, http.MethodGet, "/api/test-workflow", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "disabled")
}
