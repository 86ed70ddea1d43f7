package routes

import (
	"pixelforge/internal/handlers"
	"pixelforge/internal/middlewares"
	"pixelforge/internal/policy"

	"github.com/gin-gonic/gin"
)

type UserRoutes struct {
	userHandler  *handlers.UserHandler
	authenticate gin.HandlerFunc
	recorder     middlewares.DenialRecorder
}

func NewUserRoutes(userHandler *handlers.UserHandler, authenticate gin.HandlerFunc, recorder middlewares.DenialRecorder) *UserRoutes {
	return &UserRoutes{
		userHandler:  userHandler,
		authenticate: authenticate,
		recorder:     recorder,
	}
}

func (r *UserRoutes) RegisterRoutes(router *gin.RouterGroup) {
	allow := func(action policy.Action) gin.HandlerFunc {
		return middlewares.Authorize(action, r.recorder)
	}

	users := router.Group("/users")
	users.Use(r.authenticate) // All user routes require authentication
	{
		users.GET("/developers", allow(policy.ListDevelopers), r.userHandler.ListDevelopers)

		// Admin-only routes
		users.GET("", allow(policy.ManageUsers), r.userHandler.ListUsers)
		users.POST("", allow(policy.ManageUsers), r.userHandler.CreateUser)
		users.PUT("/:id", allow(policy.ManageUsers), r.userHandler.UpdateUser)
		users.DELETE("/:id", allow(policy.ManageUsers), r.userHandler.DeleteUser)
	}
}
