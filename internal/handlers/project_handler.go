package handlers

import (
	"net/http"

	"pixelforge/internal/responses"
	"pixelforge/internal/services"

	"github.com/gin-gonic/gin"
)

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// CreateProject handles POST /api/projects (admin only)
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	var req services.CreateProjectRequest
	if _, ok := bindJSON(c, &req); !ok {
		return
	}

	project, err := h.projectService.CreateProject(c.Request.Context(), caller, req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	responses.Success(c, http.StatusCreated, project, "Project created successfully")
}

// ListProjects handles GET /api/projects
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	projects, err := h.projectService.ListProjects(c.Request.Context(), caller)
	if err != nil {
		_ = c.Error(err)
		return
	}

	responses.List(c, projects)
}

// ListActiveProjects handles GET /api/projects/active
func (h *ProjectHandler) ListActiveProjects(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	projects, err := h.projectService.ListActiveProjects(c.Request.Context(), caller)
	if err != nil {
		_ = c.Error(err)
		return
	}

	responses.List(c, projects)
}

// ListAllProjects handles GET /api/projects/admin/all (admin only)
func (h *ProjectHandler) ListAllProjects(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	projects, err := h.projectService.ListAllProjects(c.Request.Context(), caller)
	if err != nil {
		_ = c.Error(err)
		return
	}

	responses.List(c, projects)
}

// DashboardStats handles GET /api/projects/admin/dashboard-stats
func (h *ProjectHandler) DashboardStats(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	stats, err := h.projectService.DashboardStats(c.Request.Context(), caller)
	if err != nil {
		_ = c.Error(err)
		return
	}

	responses.Success(c, http.StatusOK, stats, "")
}

// GetProject handles GET /api/projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	project, err := h.projectService.GetProject(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	responses.Success(c, http.StatusOK, project, "")
}

// UpdateProject handles PUT /api/projects/:id
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	var req services.UpdateProjectRequest
	if _, ok := bindJSON(c, &req); !ok {
		return
	}

	project, err := h.projectService.UpdateProject(c.Request.Context(), caller, c.Param("id"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	responses.Success(c, http.StatusOK, project, "Project updated successfully")
}

// CompleteProject handles PUT and PATCH /api/projects/:id/complete (admin only)
func (h *ProjectHandler) CompleteProject(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	project, err := h.projectService.CompleteProject(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	responses.Success(c, http.StatusOK, project, "Project marked as completed")
}

// DeleteProject handles DELETE /api/projects/:id (admin only)
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	if err := h.projectService.DeleteProject(c.Request.Context(), caller, c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}

	responses.Success(c, http.StatusOK, nil, "Project deleted successfully")
}

// AssignDeveloper handles POST /api/projects/:id/assign
func (h *ProjectHandler) AssignDeveloper(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	var req services.DeveloperRequest
	if _, ok := bindJSON(c, &req); !ok {
		return
	}

	project, err := h.projectService.AssignDeveloper(c.Request.Context(), caller, c.Param("id"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	responses.Success(c, http.StatusOK, project, "Developer assigned successfully")
}

// RemoveDeveloper handles POST /api/projects/:id/remove-developer
func (h *ProjectHandler) RemoveDeveloper(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	var req services.DeveloperRequest
	if _, ok := bindJSON(c, &req); !ok {
		return
	}

	project, err := h.projectService.RemoveDeveloper(c.Request.Context(), caller, c.Param("id"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	responses.Success(c, http.StatusOK, project, "Developer removed successfully")
}
