package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"pixelforge/internal/config"
	"pixelforge/internal/database"
	"pixelforge/internal/metrics"
	"pixelforge/internal/middlewares"
	"pixelforge/internal/repositories"
	"pixelforge/internal/routes"
	"pixelforge/internal/services"
	"pixelforge/internal/storage"
	"pixelforge/internal/utils"
	"pixelforge/internal/workers/cleanup"
)

// Server owns every long-lived dependency of the process: database clients, the upload
// directory, the services built on them and the background workers.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger

	client *mongo.Client
	rdb    *redis.Client

	registry *prometheus.Registry
	metrics  *metrics.Collector
	limiter  *middlewares.RateLimiter
	sweeper  *cleanup.Sweeper

	authService     *services.AuthService
	userService     *services.UserService
	projectService  *services.ProjectService
	documentService *services.DocumentService
}

// New connects to MongoDB (and Redis when configured), applies migrations and wires the
// services. Call Close when done.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	s := &Server{cfg: cfg, logger: logger}

	client, db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, err
	}
	s.client = client

	if err := database.RunMigrations(ctx, db); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Token revocation is optional; without Redis logout is accepted but not enforced
	var revoker services.TokenRevoker
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			s.Close()
			return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.RedisAddr, err)
		}
		logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr))
		s.rdb = rdb
		revoker = repositories.NewRedisRepository(rdb)
	} else {
		logger.Warn("REDIS_ADDR not set, token revocation is disabled")
	}

	disk, err := storage.NewDisk(cfg.UploadDir)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.registry = prometheus.NewRegistry()
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.metrics = metrics.NewCollector(s.registry)

	// Dependency injection
	userRepo := repositories.NewUserRepository(db)
	projectRepo := repositories.NewProjectRepository(db)
	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiresIn)

	s.authService = services.NewAuthService(userRepo, tokens, revoker)
	s.userService = services.NewUserService(userRepo, projectRepo, s.metrics)
	s.projectService = services.NewProjectService(projectRepo, userRepo, disk, s.metrics)
	s.documentService = services.NewDocumentService(projectRepo, userRepo, disk, s.metrics, services.DocumentOptions{
		MaxBytes:     cfg.UploadMaxBytes,
		SniffContent: cfg.UploadSniffContent,
	})
	s.sweeper = cleanup.NewSweeper(projectRepo, disk, logger, cfg.OrphanGracePeriod)

	return s, nil
}

// HTTPServer builds the router and wraps it in an http.Server listening on the configured port.
func (s *Server) HTTPServer() *http.Server {
	s.limiter = middlewares.NewRateLimiter(middlewares.RateLimiterConfig{
		Requests: s.cfg.RateLimitRequests,
		Window:   s.cfg.RateLimitWindow,
	})

	router := routes.NewRouter(routes.Deps{
		Auth:        s.authService,
		Users:       s.userService,
		Projects:    s.projectService,
		Documents:   s.documentService,
		Logger:      s.logger,
		Metrics:     s.metrics,
		Gatherer:    s.registry,
		RateLimiter: s.limiter,
		CORSOrigins: s.cfg.CORSOrigins,
		Development: s.cfg.IsDevelopment(),
	})

	return &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           router,
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
	}
}

// StartWorkers launches the orphan sweeper when an interval is configured. Workers stop
// when ctx is cancelled.
func (s *Server) StartWorkers(ctx context.Context) {
	if s.cfg.OrphanSweepInterval <= 0 {
		return
	}
	go s.sweeper.Start(ctx, s.cfg.OrphanSweepInterval)
}

// SeedAdmin creates the configured initial admin account if it does not exist yet.
func (s *Server) SeedAdmin(ctx context.Context) error {
	user, created, err := s.userService.SeedAdmin(ctx, s.cfg.SeedAdminName, s.cfg.SeedAdminEmail, s.cfg.SeedAdminPassword)
	if err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	if !created {
		s.logger.Info("admin user already exists", slog.String("email", user.Email))
		return nil
	}
	s.logger.Info("admin user created", slog.String("email", user.Email), slog.String("id", user.ID.Hex()))
	return nil
}

// Sweep runs the orphan sweeper once.
func (s *Server) Sweep(ctx context.Context) (int, error) {
	return s.sweeper.RunOnce(ctx)
}

func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			s.logger.Warn("redis close failed", slog.Any("error", err))
		}
	}
	database.Close(s.client)
}
