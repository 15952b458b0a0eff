// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"log/slog"
	"time"

	_ "github.com/Kellia855/mindbridge/docs" // swagger docs
	"github.com/Kellia855/mindbridge/internal/broker"
	"github.com/Kellia855/mindbridge/internal/config"
	"github.com/Kellia855/mindbridge/internal/featureflags"
	"github.com/Kellia855/mindbridge/internal/mailer"
	"github.com/Kellia855/mindbridge/internal/meeting"
	"github.com/Kellia855/mindbridge/internal/middleware"
	"github.com/Kellia855/mindbridge/internal/models"
	"github.com/Kellia855/mindbridge/internal/notifications"
	"github.com/Kellia855/mindbridge/internal/repository"
	"github.com/Kellia855/mindbridge/internal/service"

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

// Deps carries the external collaborators of the booking workflow. Nil
// fields fall back to the disabled implementations.
type Deps struct {
	Meetings  meeting.Provisioner
	Mail      mailer.Sender
	Reminders service.ReminderScheduler
	Events    broker.EventPublisher
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	tokens         *middleware.TokenManager
	featureFlags   *featureflags.Manager
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	userRepo       repository.UserRepository
	userService    *service.UserService
	bookingService *service.BookingService
	eventService   *service.EventService
	postService    *service.PostService
	libraryService *service.LibraryService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// The bootstrap package establishes DB and Redis; tests pass sqlite and nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, deps Deps) (*Server, error) {
	loc, err := cfg.SessionLocation()
	if err != nil {
		return nil, err
	}

	userRepo := repository.NewUserRepository(db)
	flags := featureflags.NewManager(cfg.FeatureFlags)
	tokens := middleware.NewTokenManager(cfg.JWTSecret, 0)
	notifier := notifications.NewNotifier(redisClient)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("mindbridge-api"),
		tokens:         tokens,
		featureFlags:   flags,
		notifier:       notifier,
		userRepo:       userRepo,
	}

	server.userService = service.NewUserService(userRepo, tokens)
	server.bookingService = service.NewBookingService(service.BookingDeps{
		Bookings:        repository.NewBookingRepository(db),
		Users:           userRepo,
		Meetings:        deps.Meetings,
		Mail:            deps.Mail,
		Reminders:       deps.Reminders,
		Realtime:        notifier,
		Events:          deps.Events,
		Flags:           flags,
		Location:        loc,
		SessionDuration: cfg.SessionDuration(),
		ProviderTimeout: cfg.ProviderTimeout(),
		Now:             deps.Now,
	})
	server.eventService = service.NewEventService(repository.NewEventRepository(db), loc)
	server.postService = service.NewPostService(repository.NewPostRepository(db), flags, notifier)
	server.libraryService = service.NewLibraryService(repository.NewLibraryRepository(db), service.LibraryConfig{
		MediaDir:          cfg.MediaDir,
		MaxUploadSizeMB:   cfg.MediaMaxUploadMB,
		PublicMediaPrefix: cfg.PublicMediaPrefix,
	})

	if redisClient != nil {
		server.hub = notifications.NewHub()
	}

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Propagates request ID into the request context for logging
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
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
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	mediaPrefix := s.config.PublicMediaPrefix
	if mediaPrefix == "" {
		mediaPrefix = service.DefaultPublicMediaPrefix
	}
	mediaDir := s.config.MediaDir
	if mediaDir == "" {
		mediaDir = service.DefaultMediaDir
	}
	app.Static(mediaPrefix, mediaDir, fiber.Static{MaxAge: 86400})

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)

	protected := api.Group("", s.AuthRequired())

	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)

	bookings := protected.Group("/bookings")
	bookings.Get("/", s.ListBookings)
	bookings.Post("/", middleware.RateLimit(s.redis, 10, time.Hour, "create_booking"), s.CreateBooking)
	bookings.Get("/session-types", s.GetSessionTypes)
	bookings.Get("/:id", s.GetBooking)
	bookings.Post("/:id/approve", s.StaffRequired(), s.ApproveBooking)
	bookings.Post("/:id/reject", s.StaffRequired(), s.RejectBooking)
	bookings.Post("/:id/cancel", s.CancelBooking)
	bookings.Post("/:id/reschedule", s.StaffRequired(), s.RescheduleBooking)

	events := protected.Group("/events")
	events.Get("/", s.ListEvents)
	events.Get("/mine", s.MyEventRegistrations)
	events.Get("/:id", s.GetEvent)
	events.Post("/", s.StaffRequired(), s.CreateEvent)
	events.Put("/:id", s.StaffRequired(), s.UpdateEvent)
	events.Delete("/:id", s.StaffRequired(), s.ArchiveEvent)
	events.Post("/:id/register", s.RegisterForEvent)
	events.Delete("/:id/register", s.UnregisterFromEvent)
	events.Get("/:id/registrations", s.StaffRequired(), s.ListEventRegistrations)
	protected.Post("/event-registrations/:id/attended", s.StaffRequired(), s.SetAttendance)

	posts := protected.Group("/posts")
	posts.Get("/", s.ListPosts)
	posts.Get("/mine", s.MyPosts)
	posts.Get("/categories", s.GetPostCategories)
	posts.Post("/", middleware.RateLimit(s.redis, 5, time.Hour, "create_post"), s.CreatePost)
	posts.Delete("/:id", s.DeletePost)
	posts.Post("/:id/approve", s.StaffRequired(), s.ApprovePost)

	library := protected.Group("/library")
	library.Get("/", s.ListBooks)
	library.Get("/categories", s.GetBookCategories)
	library.Get("/:id", s.GetBook)
	library.Post("/", s.StaffRequired(), s.CreateBook)
	library.Put("/:id", s.StaffRequired(), s.UpdateBook)
	library.Delete("/:id", s.StaffRequired(), s.DeleteBook)
	library.Post("/:id/cover", s.StaffRequired(), s.UploadBookCover)

	protected.Get("/ws", s.WebsocketHandler())

	admin := protected.Group("/admin", s.StaffRequired())
	admin.Post("/users/:id/role", s.SetUserRole)
	admin.Post("/bookings/complete", s.CompleteBookings)
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Put("/feature-flags/:name", s.SetFeatureFlag)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now().UTC(),
	})
}

// ReadinessCheck reports database and Redis reachability.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
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
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"service": "mindbridge-api",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now().UTC(),
	})
}

// newApp builds the Fiber app with middleware and routes attached.
func (s *Server) newApp() *fiber.App {
	uploadMB := s.config.MediaMaxUploadMB
	if uploadMB <= 0 {
		uploadMB = service.DefaultMaxUploadSizeMB
	}
	app := fiber.New(fiber.Config{
		AppName: "MindBridge API",
		// room for the multipart envelope around a cover upload
		BodyLimit: (uploadMB + 1) * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
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

	s.app = s.newApp()

	if s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start notification wiring", slog.String("error", err.Error()))
			}
		}()
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
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

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down notification hub", slog.String("error", err.Error()))
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

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
