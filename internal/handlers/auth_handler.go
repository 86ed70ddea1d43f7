package handlers

import (
	"net/http"

	"pixelforge/internal/middlewares"
	"pixelforge/internal/responses"
	"pixelforge/internal/services"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *services.AuthService
	userService *services.UserService
}

func NewAuthHandler(authService *services.AuthService, userService *services.UserService) *AuthHandler {
	return &AuthHandler{authService: authService, userService: userService}
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if _, ok := bindJSON(c, &req); !ok {
		return
	}

	res, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	responses.Success(c, http.StatusOK, res, "Login successful")
}

// Register handles POST /api/auth/register (admin only). It creates a user exactly like
// POST /api/users.
func (h *AuthHandler) Register(c *gin.Context) {
	createUser(c, h.userService, "User registered successfully")
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	user, err := h.authService.Me(c.Request.Context(), caller)
	if err != nil {
		_ = c.Error(err)
		return
	}

	responses.Success(c, http.StatusOK, user, "")
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := middlewares.ClaimsFromContext(c)
	if !ok {
		responses.Fail(c, http.StatusUnauthorized, nil, "Unauthorized - No token provided")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
		_ = c.Error(err)
		return
	}

	responses.Success(c, http.StatusOK, nil, "Logged out successfully")
}
