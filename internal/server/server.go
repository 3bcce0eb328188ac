// Package server contains the HTTP handlers and routing for the marketplace API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"femcircle/internal/config"
	"femcircle/internal/database"
	"femcircle/internal/featureflags"
	"femcircle/internal/middleware"
	"femcircle/internal/models"
	"femcircle/internal/repository"
	"femcircle/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	userRepo       repository.UserRepository
	productRepo    repository.ProductRepository
	featureFlags   *featureflags.Manager
	accounts       *service.AccountService
	listings       *service.ListingService
	moderation     *service.ModerationService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// The bootstrap layer uses it after connecting, migrating and seeding.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	s := newServer(cfg, repository.NewUserRepository(db), repository.NewProductRepository(db))
	s.db = db
	s.redis = redisClient
	s.promMiddleware = middleware.InitMetrics("femcircle-api")
	return s, nil
}

// newServer wires the services over the given repositories.
func newServer(cfg *config.Config, users repository.UserRepository, products repository.ProductRepository) *Server {
	flags := featureflags.NewManager(cfg.FeatureFlags)
	return &Server{
		config:       cfg,
		userRepo:     users,
		productRepo:  products,
		featureFlags: flags,
		accounts:     service.NewAccountService(users),
		listings: service.NewListingService(users, products, service.ListingOptions{
			OwnerFallback: cfg.ListingOwnerFallback,
			Flags:         flags,
		}),
		moderation: service.NewModerationService(users, products),
	}
}

// App builds the Fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "FemCircle API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled request error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Propagates request and trace IDs into the user context for logging.
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so throttled responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
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

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(s.redis, 3, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)
	auth.Get("/me", s.AuthRequired(), s.GetMe)

	listings := api.Group("/listings")
	listings.Get("/", s.SearchListings)
	listings.Post("/", s.OptionalSession(), s.CreateListing)
	// Specific /:id/:resource routes before the generic /:id route.
	listings.Get("/:id/edit", s.AuthRequired(), s.GetListingForEdit)
	listings.Post("/:id/book", s.AuthRequired(),
		middleware.RateLimit(s.redis, 10, time.Minute, "book"), s.BookListing)
	listings.Post("/:id/booking/approve", s.AuthRequired(), s.ApproveBooking)
	listings.Post("/:id/booking/reject", s.AuthRequired(), s.RejectBooking)
	listings.Post("/:id/booking/undo", s.AuthRequired(), s.UndoBooking)
	listings.Get("/:id", s.GetListing)
	listings.Put("/:id", s.AuthRequired(), s.UpdateListing)
	listings.Delete("/:id", s.AuthRequired(), s.DeleteListing)

	me := api.Group("/me", s.AuthRequired())
	me.Get("/activity", s.GetMyActivity)

	admin := api.Group("/admin", s.AuthRequired(), s.AdminRequired())
	admin.Get("/dashboard", s.GetAdminDashboard)
	admin.Get("/users", s.GetAdminUsers)
	admin.Post("/users/:id/toggle-verification", s.ToggleUserVerification)
	admin.Post("/users/:id/toggle-block", s.ToggleUserBlocked)
	admin.Get("/listings/pending", s.GetPendingListings)
	admin.Post("/listings/:id/approve", s.ApproveListing)
	admin.Post("/listings/:id/reject", s.RejectListing)
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness checks
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness checks
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil || database.Ping(ctx, s.db) != nil {
		dbStatus = "unhealthy"
	}

	// Redis backs the cache and rate limits but the API still serves without it.
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
	} else if redisStatus != "healthy" {
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

// Start starts the server
func (s *Server) Start() error {
	s.app = s.App()
	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
			}
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
