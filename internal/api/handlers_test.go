package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/domain"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/integrations/github"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/integrations/jira"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/session"
)

// --- Stubs ---

type stubOpportunities struct {
	views    map[string]domain.OpportunityView
	hidden   map[string]bool
	err      error
	lastRole domain.Role
}

func (s *stubOpportunities) ListOpportunities(ctx context.Context, stage domain.Stage) ([]domain.OpportunityView, error) {
	s.lastRole = session.RoleFromContext(ctx)
	if s.err != nil {
		return nil, s.err
	}
	out := []domain.OpportunityView{}
	for _, v := range s.views {
		if stage == "" || v.Stage == stage {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *stubOpportunities) GetOpportunity(_ context.Context, id string) (*domain.OpportunityView, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.hidden[id] {
		return nil, domain.ErrForbidden
	}
	v, ok := s.views[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (s *stubOpportunities) CreateOpportunity(_ context.Context, o domain.Opportunity) (*domain.OpportunityView, error) {
	if s.err != nil {
		return nil, s.err
	}
	if o.ID == "" {
		o.ID = "generated"
	}
	v := domain.OpportunityView{Opportunity: o}
	s.views[o.ID] = v
	return &v, nil
}

func (s *stubOpportunities) UpdateOpportunity(_ context.Context, id string, upd domain.OpportunityUpdate) (*domain.OpportunityView, error) {
	if s.err != nil {
		return nil, s.err
	}
	v, ok := s.views[id]
	if !ok {
		return nil, domain.ErrOpportunityNotFound
	}
	if upd.Status != nil {
		v.Status = *upd.Status
	}
	s.views[id] = v
	return &v, nil
}

func (s *stubOpportunities) MoveStage(_ context.Context, id string, stage domain.Stage) (*domain.OpportunityView, error) {
	if s.err != nil {
		return nil, s.err
	}
	v, ok := s.views[id]
	if !ok {
		return nil, domain.ErrOpportunityNotFound
	}
	v.Stage = stage
	return &v, nil
}

func (s *stubOpportunities) StageSummary(context.Context) ([]domain.StageCount, error) {
	return []domain.StageCount{{Stage: domain.StageIntake, Count: len(s.views)}}, s.err
}

type stubFeedback struct {
	items    []domain.Feedback
	comments []domain.Comment
	err      error
}

func (s *stubFeedback) CreateFeedback(_ context.Context, oppID, from, to, msg string) (*domain.Feedback, error) {
	if s.err != nil {
		return nil, s.err
	}
	f := domain.Feedback{ID: fmt.Sprintf("fb-%d", len(s.items)+1), OpportunityID: oppID, FromTeam: from, ToTeam: to, Message: msg}
	s.items = append(s.items, f)
	return &f, nil
}

func (s *stubFeedback) ListFeedback(_ context.Context, toTeam, _ string) []domain.Feedback {
	out := []domain.Feedback{}
	for _, f := range s.items {
		if f.ToTeam == toTeam {
			out = append(out, f)
		}
	}
	return out
}

func (s *stubFeedback) MarkAsRead(_ context.Context, id string) error {
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Read = true
			return nil
		}
	}
	return domain.ErrFeedbackNotFound
}

func (s *stubFeedback) UnreadCount(_ context.Context, team, _ string) int {
	n := 0
	for _, f := range s.items {
		if f.ToTeam == team && !f.Read {
			n++
		}
	}
	return n
}

func (s *stubFeedback) CreateComment(_ context.Context, oppID, userID, msg string) (*domain.Comment, error) {
	if userID == "" {
		return nil, &domain.ValidationError{Field: "userId", Message: "is required"}
	}
	c := domain.Comment{ID: "c1", OpportunityID: oppID, UserID: userID, Message: msg}
	s.comments = append(s.comments, c)
	return &c, nil
}

func (s *stubFeedback) ListComments(context.Context, string) []domain.Comment {
	return s.comments
}

type stubGitHub struct{ err error }

func (s stubGitHub) TestConnection(_ context.Context, creds github.Credentials) (*github.RepositorySummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &github.RepositorySummary{ID: 1, Name: creds.Repo, FullName: creds.Owner + "/" + creds.Repo}, nil
}

type stubJira struct{ err error }

func (s stubJira) TestConnection(_ context.Context, creds jira.Credentials) (*jira.Project, error) {
	return &jira.Project{ID: "1", Key: creds.ProjectKey}, s.err
}

func (s stubJira) ListEpics(context.Context, jira.Credentials) ([]jira.Epic, error) {
	return []jira.Epic{{Key: "PLM-1"}}, s.err
}

func (s stubJira) ListIssues(context.Context, jira.Credentials) ([]jira.Issue, error) {
	return []jira.Issue{{Key: "PLM-2"}}, s.err
}

// --- Harness ---

type testAPI struct {
	router   *gin.Engine
	opps     *stubOpportunities
	feedback *stubFeedback
	sessions *session.MemoryStore
	github   *stubGitHub
}

func setupAPI() *testAPI {
	gin.SetMode(gin.TestMode)
	t := &testAPI{
		opps: &stubOpportunities{views: map[string]domain.OpportunityView{
			"OPP-1": {Opportunity: domain.Opportunity{ID: "OPP-1", Name: "Portal", Stage: domain.StageProduct}, Position: 1},
		}},
		feedback: &stubFeedback{},
		sessions: session.NewMemoryStore(),
		github:   &stubGitHub{},
	}
	h := NewHandler(t.opps, t.feedback, t.sessions, t.github, stubJira{})
	t.router = SetupRouter(h, t.sessions)
	return t
}

func (t *testAPI) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	t.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// --- Tests ---

func TestGetOpportunityNotFound(t *testing.T) {
	a := setupAPI()

	w := a.do(http.MethodGet, "/api/v1/opportunities/missing-id", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No opportunity found", decode(t, w)["error"])

	w = a.do(http.MethodGet, "/api/v1/opportunities/OPP-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "OPP-1", body["id"])
	assert.Equal(t, float64(1), body["position"])
}

func TestSessionLifecycle(t *testing.T) {
	a := setupAPI()

	w := a.do(http.MethodPost, "/api/v1/session", map[string]string{"email": "pm@corp.io", "role": "Intern"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "unknown role is rejected at the boundary")

	w = a.do(http.MethodPost, "/api/v1/session", map[string]string{"email": "pm@corp.io", "name": "Pat", "role": "Engineer"})
	require.Equal(t, http.StatusCreated, w.Code)
	token, _ := decode(t, w)["token"].(string)
	require.NotEmpty(t, token)

	w = a.do(http.MethodGet, "/api/v1/session", nil, SessionTokenHeader, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pm@corp.io", decode(t, w)["email"])

	a.do(http.MethodGet, "/api/v1/opportunities", nil, SessionTokenHeader, token)
	assert.Equal(t, domain.RoleEngineer, a.opps.lastRole, "session role reaches the service")

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/v1/session", nil).Code)

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, "/api/v1/session", nil, SessionTokenHeader, token).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/v1/session", nil, SessionTokenHeader, token).Code)
}

func TestRequestIDHeader(t *testing.T) {
	a := setupAPI()

	w := a.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = a.do(http.MethodGet, "/healthz", nil, RequestIDHeader, "abc-123")
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestServiceErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", &domain.ValidationError{Field: "name", Message: "is required"}, http.StatusBadRequest},
		{"unknown stage", fmt.Errorf("%w: %q", domain.ErrUnknownStage, "qa"), http.StatusBadRequest},
		{"invalid status", domain.ErrInvalidStatus, http.StatusBadRequest},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden},
		{"not found", domain.ErrOpportunityNotFound, http.StatusNotFound},
		{"upstream", &domain.UpstreamError{Service: "github", Status: http.StatusUnauthorized}, http.StatusUnauthorized},
		{"upstream without response", &domain.UpstreamError{Service: "jira"}, http.StatusBadGateway},
		{"persistence", &domain.PersistenceError{Op: "update opportunity", Err: fmt.Errorf("conn reset")}, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := setupAPI()
			a.opps.err = tc.err
			w := a.do(http.MethodGet, "/api/v1/opportunities", nil)
			assert.Equal(t, tc.code, w.Code)
			assert.Contains(t, decode(t, w), "error")
		})
	}
}

func TestCreateOpportunityBinding(t *testing.T) {
	a := setupAPI()

	w := a.do(http.MethodPost, "/api/v1/opportunities", map[string]string{"name": "x", "priority": "urgent"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/api/v1/opportunities", map[string]string{"description": "no name"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/api/v1/opportunities", map[string]string{"name": "New", "stage": "platform", "priority": "high"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "platform", decode(t, w)["stage"])

	w = a.do(http.MethodPatch, "/api/v1/opportunities/OPP-1", map[string]string{"status": "paused"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPatch, "/api/v1/opportunities/OPP-1", map[string]string{"status": "in-progress"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "in-progress", decode(t, w)["status"])
}

func TestFeedbackEndpoints(t *testing.T) {
	a := setupAPI()

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/v1/feedback", nil).Code, "team is required")

	w := a.do(http.MethodPost, "/api/v1/feedback", map[string]string{
		"opportunityId": "OPP-1", "fromTeam": "Frontend", "toTeam": "Backend", "message": "needs review",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id, _ := decode(t, w)["id"].(string)

	w = a.do(http.MethodGet, "/api/v1/feedback/unread-count?team=Backend", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["unread"])

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodPost, "/api/v1/feedback/"+id+"/read", nil).Code)
	assert.Equal(t, http.StatusNoContent, a.do(http.MethodPost, "/api/v1/feedback/"+id+"/read", nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPost, "/api/v1/feedback/unknown/read", nil).Code)

	w = a.do(http.MethodGet, "/api/v1/feedback/unread-count?team=Backend", nil)
	assert.Equal(t, float64(0), decode(t, w)["unread"])
}

func TestCommentUsesSessionEmail(t *testing.T) {
	a := setupAPI()
	require.NoError(t, a.sessions.Set(context.Background(), "tok", session.Session{Email: "eng@corp.io", Role: domain.RoleEngineer}))

	w := a.do(http.MethodPost, "/api/v1/opportunities/OPP-1/comments", map[string]string{"message": "looks good"}, SessionTokenHeader, "tok")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "eng@corp.io", decode(t, w)["userId"])

	w = a.do(http.MethodPost, "/api/v1/opportunities/OPP-1/comments", map[string]string{"message": "anonymous"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIntegrationEndpoints(t *testing.T) {
	a := setupAPI()

	w := a.do(http.MethodPost, "/api/v1/integrations/github/test", map[string]string{"token": "t", "owner": "acme", "repo": "plm"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "acme/plm", body["repository"].(map[string]any)["fullName"])

	a.github.err = &domain.UpstreamError{Service: "github", Status: http.StatusNotFound, Body: "Not Found"}
	w = a.do(http.MethodPost, "/api/v1/integrations/github/test", map[string]string{"token": "t", "owner": "acme", "repo": "gone"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not Found", decode(t, w)["details"])

	w = a.do(http.MethodPost, "/api/v1/integrations/jira/issues", map[string]string{"projectKey": "PLM"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["issues"], 1)
}

func TestCommentsFollowOpportunityVisibility(t *testing.T) {
	a := setupAPI()
	a.opps.views["OPP-intake"] = domain.OpportunityView{Opportunity: domain.Opportunity{ID: "OPP-intake", Stage: domain.StageIntake}}
	a.opps.hidden = map[string]bool{"OPP-intake": true}
	a.feedback.comments = []domain.Comment{{ID: "c0", OpportunityID: "OPP-intake", UserID: "admin@corp.io", Message: "intake note"}}

	w := a.do(http.MethodGet, "/api/v1/opportunities/OPP-intake/comments", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotContains(t, w.Body.String(), "intake note")

	w = a.do(http.MethodPost, "/api/v1/opportunities/OPP-intake/comments", map[string]string{"userId": "eng@corp.io", "message": "hi"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Len(t, a.feedback.comments, 1, "no comment written")

	w = a.do(http.MethodGet, "/api/v1/opportunities/missing/comments", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = a.do(http.MethodPost, "/api/v1/opportunities/missing/comments", map[string]string{"userId": "eng@corp.io", "message": "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodGet, "/api/v1/opportunities/OPP-1/comments", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFeedbackRequiresKnownOpportunity(t *testing.T) {
	a := setupAPI()
	a.opps.hidden = map[string]bool{"OPP-hidden": true}

	body := map[string]string{"opportunityId": "missing", "fromTeam": "Frontend", "toTeam": "Backend", "message": "x"}
	w := a.do(http.MethodPost, "/api/v1/feedback", body)
	assert.Equal(t, http.StatusNotFound, w.Code)

	body["opportunityId"] = "OPP-hidden"
	w = a.do(http.MethodPost, "/api/v1/feedback", body)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, a.feedback.items)
}
