package api

import (
	"github.com/gin-gonic/gin"

	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/session"
)

// SetupRouter wires every route of the dashboard API
func SetupRouter(handler *Handler, sessions session.Store) *gin.Engine {
	registerValidators()

	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), LoadSession(sessions), RequestLogger())

	router.GET("/healthz", handler.Health)

	api := router.Group("/api/v1")
	{
		// Session
		api.POST("/session", handler.CreateSession)
		api.GET("/session", handler.GetSession)
		api.DELETE("/session", handler.DeleteSession)

		api.GET("/stages", handler.GetStages)

		// Opportunities
		api.GET("/opportunities", handler.ListOpportunities)
		api.POST("/opportunities", handler.CreateOpportunity)
		api.GET("/opportunities/:id", handler.GetOpportunity)
		api.PATCH("/opportunities/:id", handler.UpdateOpportunity)
		api.POST("/opportunities/:id/stage", handler.MoveStage)

		api.GET("/opportunities/:id/comments", handler.ListComments)
		api.POST("/opportunities/:id/comments", handler.CreateComment)

		// Feedback
		api.POST("/feedback", handler.CreateFeedback)
		api.GET("/feedback", handler.ListFeedback)
		api.GET("/feedback/unread-count", handler.UnreadCount)
		api.POST("/feedback/:id/read", handler.MarkFeedbackRead) // idempotent

		// Integrations
		api.POST("/integrations/github/test", handler.TestGitHub)
		api.POST("/integrations/jira/test", handler.TestJira)
		api.POST("/integrations/jira/epics", handler.JiraEpics)
		api.POST("/integrations/jira/issues", handler.JiraIssues)
	}

	return router
}
