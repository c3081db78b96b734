// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	_ "inkwell/docs" // swagger docs
	"inkwell/internal/auth"
	"inkwell/internal/bootstrap"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/repository"
	"inkwell/internal/service"
	"inkwell/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	localsUserID = "userID"
	localsClaims = "claims"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	userRepo       repository.UserRepository
	blogRepo       repository.BlogRepository
	tokens         *auth.TokenManager
	authService    *service.AuthService
	userService    *service.UserService
	blogService    *service.BlogService
	notifications  *notifications.Manager
}

// NewServer creates a new server instance with all dependencies. The
// notification manager is built here with Redis fan-out when Redis is up.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{
		ApplySchema: true,
		SeedDemo:    cfg.SeedDemoData,
	})
	if err != nil {
		return nil, err
	}

	hub := notifications.NewManager(notifications.NewNotifier(redisClient), middleware.Logger)

	return NewServerWithDeps(cfg, db, redisClient, hub)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// hub may be nil, in which case the notification endpoint reports 503.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, hub *notifications.Manager) (*Server, error) {
	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return nil, err
	}

	userRepo := repository.NewUserRepository(db)
	blogRepo := repository.NewBlogRepository(db)

	// Only assign when configured so the interface stays nil otherwise.
	var photos service.PhotoStorage
	if cfg.StorageConfigured() {
		s3, err := storage.NewS3Storage(storage.Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			PublicURL:    cfg.S3PublicURL,
		})
		if err != nil {
			return nil, err
		}
		photos = s3
	}

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("inkwell-api"),
		userRepo:       userRepo,
		blogRepo:       blogRepo,
		tokens:         tokens,
		authService:    service.NewAuthService(userRepo, tokens, service.CacheRevoker{}),
		userService:    service.NewUserService(userRepo, blogRepo, photos),
		blogService:    service.NewBlogService(blogRepo, userRepo),
		notifications:  hub,
	}, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	app.Use(middleware.StructuredLogger())

	// CORS must run before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderRetryAfter, "60")
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
				Code:  middleware.CodeRateLimited,
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api.Get("/swagger/*", swagger.HandlerDefault)

	users := api.Group("/users")
	users.Post("/register", middleware.RateLimit(
		s.redis, 5, 10*time.Minute, "register"), s.Register)
	users.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	users.Get("/logout", s.Logout)
	users.Post("/logout", s.Logout)
	users.Get("/writers", s.GetWriters)
	users.Get("/my-profile", s.AuthRequired(), s.GetMyProfile)
	users.Put("/my-profile", s.AuthRequired(), s.UpdateMyProfile)
	users.Post("/my-profile/photo", s.AuthRequired(), middleware.RateLimit(
		s.redis, 10, 10*time.Minute, "photo_upload"), s.RequestPhotoUpload)

	blogs := api.Group("/blogs")
	blogs.Get("/all-blogs", s.GetAllBlogs)
	blogs.Get("/single-blog/:id", s.GetSingleBlog)
	blogs.Get("/my-blog", s.AuthRequired(), s.GetMyBlogs)
	blogs.Post("/create", s.AuthRequired(), middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "create_blog"), s.CreateBlog)
	blogs.Put("/update/:id", s.AuthRequired(), s.UpdateBlog)
	blogs.Delete("/delete/:id", s.AuthRequired(), s.DeleteBlog)

	api.Get("/ws", s.OptionalAuth(), s.WebsocketHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so
// only the database decides readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	} else if redisStatus == "unhealthy" {
		overallStatus = "degraded"
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

// AuthRequired rejects requests without a valid, unrevoked session token.
// The user id and claims are stored in locals.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := s.authService.Authenticate(c.UserContext(), middleware.BearerToken(c))
		if err != nil {
			return models.Respond(c, err)
		}
		s.setIdentity(c, claims)
		return c.Next()
	}
}

// OptionalAuth records the caller's identity when a valid token is present
// and lets anonymous requests through.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := middleware.BearerToken(c)
		if token == "" {
			return c.Next()
		}
		if claims, err := s.authService.Authenticate(c.UserContext(), token); err == nil {
			s.setIdentity(c, claims)
		}
		return c.Next()
	}
}

func (s *Server) setIdentity(c *fiber.Ctx, claims *auth.Claims) {
	c.Locals(localsUserID, claims.UserID())
	c.Locals(localsClaims, claims)
	c.SetUserContext(middleware.WithUserID(c.UserContext(), claims.UserID()))
}

// NewApp builds the Fiber app with middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Inkwell API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return models.RespondWithError(c, fe.Code, err)
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.notifications != nil {
		if err := s.notifications.StartWiring(s.shutdownCtx); err != nil {
			middleware.Logger.Warn("notification fan-out unavailable, delivering in-process",
				slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if s.notifications != nil {
		if err := s.notifications.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down notifications", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
