// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"time"

	"localmade/internal/auth"
	"localmade/internal/cache"
	"localmade/internal/config"
	"localmade/internal/database"
	"localmade/internal/middleware"
	"localmade/internal/observability"
	"localmade/internal/repository"
	"localmade/internal/service"
	"localmade/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers.
type Server struct {
	config   *config.Config
	db       *gorm.DB
	prom     *fiberprometheus.FiberPrometheus
	sessions *auth.Provider

	profileRepo repository.ProfileRepository
	postRepo    repository.PostRepository
	accountRepo repository.AccountRepository

	postService      *service.PostService
	accountService   *service.AccountService
	directoryService *service.DirectoryService

	unsubscribeSession func()
}

// NewServer creates a new server instance with all dependencies.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	store, err := storage.NewDiskStore(cfg.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	s := NewServerWithDeps(cfg, db, store)
	s.directoryService.Warm(context.Background())
	return s, nil
}

// NewServerWithDeps wires the server from already-constructed dependencies.
// Tests use it with an in-memory database and a temp-dir store.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, store storage.Store) *Server {
	accountRepo := repository.NewAccountRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	postRepo := repository.NewPostRepository(db)

	sessions := auth.NewProvider(accountRepo, cfg.JWTSecret)
	postService := service.NewPostService(postRepo, store)

	s := &Server{
		config:           cfg,
		db:               db,
		sessions:         sessions,
		profileRepo:      profileRepo,
		postRepo:         postRepo,
		accountRepo:      accountRepo,
		postService:      postService,
		accountService:   service.NewAccountService(profileRepo, postService, store),
		directoryService: service.NewDirectoryService(profileRepo, postRepo),
	}

	// Registered once at process root and torn down on shutdown; session
	// changes are observed here instead of through any global state.
	s.unsubscribeSession = sessions.OnSessionChange(func(sess *auth.Session) {
		if sess == nil {
			observability.GlobalLogger.Info("session ended")
			return
		}
		observability.GlobalLogger.Info("session started", "user_id", sess.UserID)
	})

	s.prom = fiberprometheus.New("localmade-api")
	return s
}

// Sessions exposes the session provider for cmd wiring.
func (s *Server) Sessions() *auth.Provider {
	return s.sessions
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextLogger())

	if s.prom != nil {
		app.Use(s.prom.Middleware)
	}

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

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
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health", s.HealthCheck)

	if s.prom != nil {
		s.prom.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/signup", s.SignUp)
	authGroup.Post("/login", s.SignIn)
	authGroup.Post("/logout", s.SignOut)
	authGroup.Get("/session", s.GetSession)

	api.Get("/directory", s.GetDirectory)

	account := api.Group("/account", middleware.AuthRequired(s.sessions))
	account.Get("/", s.GetAccount)
	account.Put("/profile", s.UpdateProfile)
	account.Post("/avatar", s.UploadAvatar)
	account.Post("/posts", s.CreatePost)
	account.Delete("/posts/:id", s.DeletePost)

	media := app.Group("/media")
	media.Get("/posts/:user/:file", s.GetPostImage)
	media.Get("/avatars/:user/:file", s.GetAvatarImage)
}

// HealthCheck reports process and database liveness.
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	sqlDB, err := s.db.DB()
	if err != nil || sqlDB.PingContext(c.Context()) != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// Shutdown releases server-held resources.
func (s *Server) Shutdown() {
	if s.unsubscribeSession != nil {
		s.unsubscribeSession()
	}
}
