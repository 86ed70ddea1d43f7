package routes

import (
	"log/slog"
	"net/http"
	"time"

	"pixelforge/internal/handlers"
	"pixelforge/internal/metrics"
	"pixelforge/internal/middlewares"
	"pixelforge/internal/responses"
	"pixelforge/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Deps is everything the router needs. Metrics, Gatherer and RateLimiter are optional.
type Deps struct {
	Auth      *services.AuthService
	Users     *services.UserService
	Projects  *services.ProjectService
	Documents *services.DocumentService

	Logger      *slog.Logger
	Metrics     *metrics.Collector
	Gatherer    prometheus.Gatherer
	RateLimiter *middlewares.RateLimiter
	CORSOrigins []string
	Development bool
}

// NewRouter builds the gin engine with the middleware chain and every API route under /api.
func NewRouter(d Deps) *gin.Engine {
	if !d.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// typed nils must not leak into the interfaces below
	var requests middlewares.RequestRecorder
	var denials middlewares.DenialRecorder
	if d.Metrics != nil {
		requests = d.Metrics
		denials = d.Metrics
	}

	router := gin.New()
	router.Use(
		middlewares.Recovery(),
		middlewares.SecurityHeaders(),
		middlewares.CORS(d.CORSOrigins),
		middlewares.Logging(logger, requests),
		middlewares.ErrorHandler(d.Development),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "OK",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	if d.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(d.Gatherer)))
	}

	api := router.Group("/api")
	if d.RateLimiter != nil {
		api.Use(d.RateLimiter.Middleware())
	}

	authenticate := middlewares.Authenticate(d.Auth)

	authRoutes := NewAuthRoutes(handlers.NewAuthHandler(d.Auth, d.Users), authenticate, denials)
	authRoutes.RegisterRoutes(api)

	userRoutes := NewUserRoutes(handlers.NewUserHandler(d.Users), authenticate, denials)
	userRoutes.RegisterRoutes(api)

	projectRoutes := NewProjectRoutes(
		handlers.NewProjectHandler(d.Projects),
		handlers.NewDocumentHandler(d.Documents),
		authenticate,
		denials,
	)
	projectRoutes.RegisterRoutes(api)

	router.NoRoute(func(c *gin.Context) {
		responses.Fail(c, http.StatusNotFound, nil, "Route not found: "+c.Request.URL.Path)
	})

	return router
}
