// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"grapevine/internal/cache"
	"grapevine/internal/config"
	"grapevine/internal/database"
	"grapevine/internal/integrity"
	"grapevine/internal/mail"
	"grapevine/internal/middleware"
	"grapevine/internal/models"
	"grapevine/internal/repository"
	"grapevine/internal/service"
	"grapevine/internal/storage"
	"grapevine/internal/token"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config *config.Config
	db     *gorm.DB
	redis  *redis.Client
	app    *fiber.App

	userRepo    repository.UserRepository
	gossipRepo  repository.GossipRepository
	commentRepo repository.CommentRepository

	engine *integrity.Engine
	tokens *token.Service
	mailer mail.Sender

	imageService   *service.ImageService
	gossipService  *service.GossipService
	commentService *service.CommentService
	likeService    *service.LikeService
	userService    *service.UserService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	store, err := storage.NewDiskStore(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("upload storage init failed: %w", err)
	}

	var mailer mail.Sender
	if cfg.SMTPHost != "" {
		mailer = &mail.SMTPSender{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		}
	} else {
		mailer = &mail.LogSender{Logger: middleware.Logger}
	}

	return NewServerWithDeps(cfg, db, redisClient, store, mailer)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis/storage.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, store storage.ObjectStore, mailer mail.Sender) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	gossipRepo := repository.NewGossipRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	middleware.InitMetrics("grapevine-api")

	server := &Server{
		config:      cfg,
		db:          db,
		redis:       redisClient,
		userRepo:    userRepo,
		gossipRepo:  gossipRepo,
		commentRepo: commentRepo,
		engine:      integrity.NewEngine(db, middleware.Logger),
		tokens:      token.NewService(redisClient, cfg.JWTSecret),
		mailer:      mailer,
	}

	server.imageService = service.NewImageService(store)
	server.userService = service.NewUserService(
		userRepo, server.engine, server.imageService, server.tokens, middleware.Logger)
	server.gossipService = service.NewGossipService(
		gossipRepo, server.engine, server.imageService, middleware.Logger, server.userService.IsAdmin)
	server.commentService = service.NewCommentService(
		commentRepo, gossipRepo, server.engine, server.userService.IsAdmin)
	server.likeService = service.NewLikeService(server.engine)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// OpenTelemetry request spans
	app.Use(middleware.TracingMiddleware())

	// Prometheus metrics (also registers /metrics)
	app.Use(middleware.MetricsMiddleware(app))

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit
	// (e.g. limiter) so browser clients still receive CORS headers on error
	// responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	app.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Grapevine Metrics Dashboard",
	}))

	// Uploaded images (gossip images and avatars)
	app.Static("/uploads", s.config.UploadDir)

	// Auth routes
	account := app.Group("/account")
	auth := account.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/signin", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "signin"), s.Signin)
	auth.Post("/refresh", s.Refresh)
	auth.Delete("/signout", s.AuthRequired(), s.Signout)

	// Email verification
	account.Get("/verify/:userId/:token", s.VerifyEmail)
	account.Post("/verify/resend", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "verify_resend"), s.AuthRequired(), s.ResendVerification)

	// User routes
	users := app.Group("/users", s.AuthRequired())
	users.Get("/get", s.GetUsers)
	users.Get("/get/:userId", s.GetUser)
	users.Patch("/update/:userId", s.UpdateUser)
	users.Delete("/delete/:userId", s.DeleteUser)

	// Gossip routes; browsing is public, writes require auth
	gossips := app.Group("/gossips")
	gossips.Get("/get", s.GetGossips)
	gossips.Get("/get/:gossipId/comments", s.GetComments)
	gossips.Get("/get/:gossipId", s.GetGossip)
	gossips.Post("/create", s.AuthRequired(), middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "create_gossip"), s.CreateGossip)
	gossips.Post("/create/:gossipId/comment", s.AuthRequired(), middleware.RateLimit(
		s.redis, 30, 5*time.Minute, "create_comment"), s.CreateComment)
	gossips.Patch("/update/:gossipId", s.AuthRequired(), s.UpdateGossip)
	gossips.Delete("/delete/comment/:commentId", s.AuthRequired(), s.DeleteComment)
	gossips.Delete("/delete/:gossipId", s.AuthRequired(), s.DeleteGossip)

	// Like routes
	likes := app.Group("/likes")
	likes.Get("/:itemId/get", s.GetLikes)
	likes.Post("/:itemId/like", s.AuthRequired(), s.Like)
	likes.Delete("/:itemId/unlike", s.AuthRequired(), s.Unlike)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// Redis holds sessions, so readiness requires it
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired returns the authentication middleware. It verifies the access
// token and stores userID, role and jti in locals.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c)
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := s.tokens.VerifyAccess(c.Context(), tokenString)
		if err != nil {
			return models.RespondWithAppError(c, err)
		}

		c.Locals("userID", claims.UserID)
		c.Locals("role", claims.Role)
		c.Locals("jti", claims.JTI)
		// Sync to UserContext for logging and downstream services
		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, claims.UserID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// optionalUserID attempts to extract userID from the Authorization header but
// does not enforce it. Anonymous browsing of public routes stays allowed.
func (s *Server) optionalUserID(c *fiber.Ctx) (uint, bool) {
	tokenString := bearerToken(c)
	if tokenString == "" {
		return 0, false
	}
	claims, err := s.tokens.VerifyAccess(c.Context(), tokenString)
	if err != nil {
		return 0, false
	}
	return claims.UserID, true
}

func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// Start starts the server
func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName:   "Grapevine API",
		BodyLimit: 12 * 1024 * 1024, // image uploads
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
