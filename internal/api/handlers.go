package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/domain"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/integrations/github"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/integrations/jira"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/lifecycle"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/logger"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/session"
)

type GitHubClient interface {
	TestConnection(ctx context.Context, creds github.Credentials) (*github.RepositorySummary, error)
}

type JiraClient interface {
	TestConnection(ctx context.Context, creds jira.Credentials) (*jira.Project, error)
	ListEpics(ctx context.Context, creds jira.Credentials) ([]jira.Epic, error)
	ListIssues(ctx context.Context, creds jira.Credentials) ([]jira.Issue, error)
}

// Handler holds the services the HTTP layer calls into
type Handler struct {
	opportunities domain.OpportunityService
	feedback      domain.FeedbackService
	sessions      session.Store
	github        GitHubClient
	jira          JiraClient
}

func NewHandler(
	opportunities domain.OpportunityService,
	feedback domain.FeedbackService,
	sessions session.Store,
	gh GitHubClient,
	jr JiraClient,
) *Handler {
	return &Handler{
		opportunities: opportunities,
		feedback:      feedback,
		sessions:      sessions,
		github:        gh,
		jira:          jr,
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
}

// --- Session ---

type createSessionRequest struct {
	Email string      `json:"email" binding:"required,email"`
	Name  string      `json:"name"`
	Role  domain.Role `json:"role" binding:"required,plm_role"`
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	s := session.Session{Email: req.Email, Name: req.Name, Role: req.Role}
	token := uuid.NewString()
	if err := h.sessions.Set(c.Request.Context(), token, s); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "session": s})
}

func (h *Handler) GetSession(c *gin.Context) {
	s, ok := session.FromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No active session"})
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) DeleteSession(c *gin.Context) {
	if token := c.GetHeader(SessionTokenHeader); token != "" {
		if err := h.sessions.Clear(c.Request.Context(), token); err != nil {
			handleServiceError(c, err)
			return
		}
	}
	c.Status(http.StatusNoContent)
}

// --- Stages ---

func (h *Handler) GetStages(c *gin.Context) {
	summary, err := h.opportunities.StageSummary(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stages": lifecycle.Stages, "counts": summary})
}

// --- Opportunities ---

func (h *Handler) ListOpportunities(c *gin.Context) {
	stage := domain.Stage(c.Query("stage"))

	views, err := h.opportunities.ListOpportunities(c.Request.Context(), stage)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) GetOpportunity(c *gin.Context) {
	v, err := h.opportunities.GetOpportunity(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if v == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No opportunity found"})
		return
	}
	c.JSON(http.StatusOK, v)
}

type createOpportunityRequest struct {
	ID          string          `json:"id"`
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Owner       string          `json:"owner"`
	Stage       domain.Stage    `json:"stage" binding:"omitempty,plm_stage"`
	Status      domain.Status   `json:"status" binding:"omitempty,plm_status"`
	Priority    domain.Priority `json:"priority" binding:"omitempty,plm_priority"`
}

func (h *Handler) CreateOpportunity(c *gin.Context) {
	var req createOpportunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	v, err := h.opportunities.CreateOpportunity(c.Request.Context(), domain.Opportunity{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Owner:       req.Owner,
		Stage:       req.Stage,
		Status:      req.Status,
		Priority:    req.Priority,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

type updateOpportunityRequest struct {
	Name        *string          `json:"name" binding:"omitempty,min=1"`
	Description *string          `json:"description"`
	Owner       *string          `json:"owner"`
	Status      *domain.Status   `json:"status" binding:"omitempty,plm_status"`
	Priority    *domain.Priority `json:"priority" binding:"omitempty,plm_priority"`
}

func (h *Handler) UpdateOpportunity(c *gin.Context) {
	var req updateOpportunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	v, err := h.opportunities.UpdateOpportunity(c.Request.Context(), c.Param("id"), domain.OpportunityUpdate{
		Name:        req.Name,
		Description: req.Description,
		Owner:       req.Owner,
		Status:      req.Status,
		Priority:    req.Priority,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

type moveStageRequest struct {
	Stage domain.Stage `json:"stage" binding:"required"`
}

func (h *Handler) MoveStage(c *gin.Context) {
	var req moveStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	v, err := h.opportunities.MoveStage(c.Request.Context(), c.Param("id"), req.Stage)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// --- Comments ---

type createCommentRequest struct {
	UserID  string `json:"userId"`
	Message string `json:"message" binding:"required"`
}

// requireOpportunity answers 404 or 403 and returns false unless the
// opportunity exists and the session role can see it.
func (h *Handler) requireOpportunity(c *gin.Context, id string) bool {
	v, err := h.opportunities.GetOpportunity(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return false
	}
	if v == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No opportunity found"})
		return false
	}
	return true
}

func (h *Handler) ListComments(c *gin.Context) {
	if !h.requireOpportunity(c, c.Param("id")) {
		return
	}
	c.JSON(http.StatusOK, h.feedback.ListComments(c.Request.Context(), c.Param("id")))
}

func (h *Handler) CreateComment(c *gin.Context) {
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !h.requireOpportunity(c, c.Param("id")) {
		return
	}

	userID := req.UserID
	if s, ok := session.FromContext(c.Request.Context()); ok && userID == "" {
		userID = s.Email
	}

	comment, err := h.feedback.CreateComment(c.Request.Context(), c.Param("id"), userID, req.Message)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// --- Feedback ---

type createFeedbackRequest struct {
	OpportunityID string `json:"opportunityId" binding:"required"`
	FromTeam      string `json:"fromTeam" binding:"required"`
	ToTeam        string `json:"toTeam" binding:"required"`
	Message       string `json:"message" binding:"required"`
}

func (h *Handler) CreateFeedback(c *gin.Context) {
	var req createFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !h.requireOpportunity(c, req.OpportunityID) {
		return
	}

	fb, err := h.feedback.CreateFeedback(c.Request.Context(), req.OpportunityID, req.FromTeam, req.ToTeam, req.Message)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fb)
}

type feedbackQuery struct {
	Team          string `form:"team" binding:"required"`
	OpportunityID string `form:"opportunityId"`
}

func (h *Handler) ListFeedback(c *gin.Context) {
	var q feedbackQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, h.feedback.ListFeedback(c.Request.Context(), q.Team, q.OpportunityID))
}

func (h *Handler) UnreadCount(c *gin.Context) {
	var q feedbackQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	count := h.feedback.UnreadCount(c.Request.Context(), q.Team, q.OpportunityID)
	c.JSON(http.StatusOK, gin.H{"team": q.Team, "unread": count})
}

func (h *Handler) MarkFeedbackRead(c *gin.Context) {
	if err := h.feedback.MarkAsRead(c.Request.Context(), c.Param("id")); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Integrations ---

func (h *Handler) TestGitHub(c *gin.Context) {
	var creds github.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		badRequest(c, err)
		return
	}

	repo, err := h.github.TestConnection(c.Request.Context(), creds)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "repository": repo})
}

func (h *Handler) bindJira(c *gin.Context) (jira.Credentials, bool) {
	var creds jira.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		badRequest(c, err)
		return creds, false
	}
	return creds, true
}

func (h *Handler) TestJira(c *gin.Context) {
	creds, ok := h.bindJira(c)
	if !ok {
		return
	}
	project, err := h.jira.TestConnection(c.Request.Context(), creds)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "project": project})
}

func (h *Handler) JiraEpics(c *gin.Context) {
	creds, ok := h.bindJira(c)
	if !ok {
		return
	}
	epics, err := h.jira.ListEpics(c.Request.Context(), creds)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "epics": epics})
}

func (h *Handler) JiraIssues(c *gin.Context) {
	creds, ok := h.bindJira(c)
	if !ok {
		return
	}
	issues, err := h.jira.ListIssues(c.Request.Context(), creds)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "issues": issues})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Error Handling Helper ---

func handleServiceError(c *gin.Context, err error) {
	log := logger.WithContext(c.Request.Context()).WithError(err)

	var (
		verr *domain.ValidationError
		uerr *domain.UpstreamError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": verr.Error()})
	case errors.Is(err, domain.ErrUnknownStage),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidPriority),
		errors.Is(err, domain.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrOpportunityNotFound), errors.Is(err, domain.ErrFeedbackNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found", "details": err.Error()})
	case errors.As(err, &uerr):
		status := uerr.Status
		if status < 400 {
			status = http.StatusBadGateway
		}
		log.WithField("upstream", uerr.Service).Warn("Upstream call failed")
		c.JSON(status, gin.H{"error": uerr.Error(), "details": uerr.Body})
	default:
		log.Error("Service error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
