package routes

import (
	"pixelforge/internal/handlers"
	"pixelforge/internal/middlewares"
	"pixelforge/internal/policy"

	"github.com/gin-gonic/gin"
)

type AuthRoutes struct {
	handler      *handlers.AuthHandler
	authenticate gin.HandlerFunc
	recorder     middlewares.DenialRecorder
}

func NewAuthRoutes(handler *handlers.AuthHandler, authenticate gin.HandlerFunc, recorder middlewares.DenialRecorder) *AuthRoutes {
	return &AuthRoutes{handler: handler, authenticate: authenticate, recorder: recorder}
}

func (r *AuthRoutes) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	{
		// Public routes
		auth.POST("/login", r.handler.Login)

		// Protected routes
		protected := auth.Group("")
		protected.Use(r.authenticate)
		protected.GET("/me", r.handler.Me)
		protected.POST("/logout", r.handler.Logout)
		protected.POST("/register", middlewares.Authorize(policy.ManageUsers, r.recorder), r.handler.Register)
	}
}
