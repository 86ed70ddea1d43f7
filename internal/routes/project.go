package routes

import (
	"pixelforge/internal/handlers"
	"pixelforge/internal/middlewares"
	"pixelforge/internal/policy"

	"github.com/gin-gonic/gin"
)

type ProjectRoutes struct {
	handler         *handlers.ProjectHandler
	documentHandler *handlers.DocumentHandler
	authenticate    gin.HandlerFunc
	recorder        middlewares.DenialRecorder
}

func NewProjectRoutes(handler *handlers.ProjectHandler, documentHandler *handlers.DocumentHandler, authenticate gin.HandlerFunc, recorder middlewares.DenialRecorder) *ProjectRoutes {
	return &ProjectRoutes{
		handler:         handler,
		documentHandler: documentHandler,
		authenticate:    authenticate,
		recorder:        recorder,
	}
}

func (r *ProjectRoutes) RegisterRoutes(router *gin.RouterGroup) {
	allow := func(action policy.Action) gin.HandlerFunc {
		return middlewares.Authorize(action, r.recorder)
	}

	projects := router.Group("/projects")
	projects.Use(r.authenticate) // All project routes require authentication
	{
		projects.POST("", allow(policy.CreateProject), r.handler.CreateProject)
		projects.GET("", allow(policy.ListProjects), r.handler.ListProjects)
		projects.GET("/active", allow(policy.ListProjects), r.handler.ListActiveProjects)

		// Admin views
		projects.GET("/admin/all", allow(policy.ListAllProjects), r.handler.ListAllProjects)
		projects.GET("/admin/dashboard-stats", allow(policy.ViewDashboard), r.handler.DashboardStats)

		projects.GET("/:id", allow(policy.ViewProject), r.handler.GetProject)
		projects.PUT("/:id", allow(policy.UpdateProject), r.handler.UpdateProject)
		projects.DELETE("/:id", allow(policy.DeleteProject), r.handler.DeleteProject)
		projects.PUT("/:id/complete", allow(policy.CompleteProject), r.handler.CompleteProject)
		projects.PATCH("/:id/complete", allow(policy.CompleteProject), r.handler.CompleteProject)
		projects.POST("/:id/assign", allow(policy.AssignDeveloper), r.handler.AssignDeveloper)
		projects.POST("/:id/remove-developer", allow(policy.RemoveDeveloper), r.handler.RemoveDeveloper)

		// Documents
		projects.POST("/:id/documents", allow(policy.UploadDocument), r.documentHandler.UploadDocument)
		projects.GET("/:id/documents/:filename", allow(policy.DownloadDocument), r.documentHandler.DownloadDocument)
	}
}
