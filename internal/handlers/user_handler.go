package handlers

import (
	"net/http"

	"pixelforge/internal/responses"
	"pixelforge/internal/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// ListUsers handles GET /api/users (admin only)
func (h *UserHandler) ListUsers(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	users, err := h.userService.ListUsers(c.Request.Context(), caller)
	if err != nil {
		_ = c.Error(err)
		return
	}

	responses.List(c, users)
}

// ListDevelopers handles GET /api/users/developers
func (h *UserHandler) ListDevelopers(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	devs, err := h.userService.ListDevelopers(c.Request.Context(), caller)
	if err != nil {
		_ = c.Error(err)
		return
	}

	responses.List(c, devs)
}

// CreateUser handles POST /api/users (admin only)
func (h *UserHandler) CreateUser(c *gin.Context) {
	createUser(c, h.userService, "User created successfully")
}

func createUser(c *gin.Context, svc *services.UserService, message string) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	// 1. Validate input
	var req services.CreateUserRequest
	tagsOK, ok := bindJSON(c, &req)
	if !ok {
		return
	}
	if !tagsOK {
		if err := req.Validate(); err != nil {
			_ = c.Error(err)
			return
		}
		// everything else is present, so the binding rejected the email format
		responses.Fail(c, http.StatusBadRequest, nil, "Please provide a valid email address")
		return
	}

	// 2. Create
	user, err := svc.CreateUser(c.Request.Context(), caller, req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	responses.Success(c, http.StatusCreated, user, message)
}

// UpdateUser handles PUT /api/users/:id (admin only)
func (h *UserHandler) UpdateUser(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	var req services.UpdateUserRequest
	if _, ok := bindJSON(c, &req); !ok {
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), caller, c.Param("id"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	responses.Success(c, http.StatusOK, user, "User updated successfully")
}

// DeleteUser handles DELETE /api/users/:id (admin only)
func (h *UserHandler) DeleteUser(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	if err := h.userService.DeleteUser(c.Request.Context(), caller, c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}

	responses.Success(c, http.StatusOK, nil, "User deleted successfully")
}
