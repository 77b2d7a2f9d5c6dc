// Package server assembles the warranty portal's Fiber application.
package server

import (
	"time"

	"warranty/internal/handlers"
	"warranty/internal/middleware"
	"warranty/internal/models"
	"warranty/internal/repositories"
	"warranty/internal/services"
	"warranty/pkg/logger"
	"warranty/pkg/metrics"
	"warranty/pkg/storage"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultServiceName = "warranty-portal"

// Services are the domain services the HTTP layer is built on.
type Services struct {
	Auth         *services.AuthService
	Catalog      *services.CatalogService
	Registration *services.RegistrationService
	Warranty     *services.WarrantyService
	Survey       *services.SurveyService
}

// ServiceConfig carries the settings services are constructed with.
type ServiceConfig struct {
	JWTSecret       string
	JWTTTL          time.Duration
	BulkConcurrency int
}

// NewServices builds the GORM repositories over db and the services on top
// of them. publisher may be nil.
func NewServices(db *gorm.DB, archive storage.Archive, publisher services.EventPublisher, cfg ServiceConfig, log *zap.Logger) Services {
	userRepo := repositories.NewGORMUserRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)
	regRepo := repositories.NewGORMRegistrationRepository(db)
	claimRepo := repositories.NewGORMClaimRepository(db)
	surveyRepo := repositories.NewGORMSurveyRepository(db)

	return Services{
		Auth:         services.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL, log),
		Catalog:      services.NewCatalogService(productRepo, cfg.BulkConcurrency, log),
		Registration: services.NewRegistrationService(regRepo, productRepo, userRepo, archive, publisher, log),
		Warranty:     services.NewWarrantyService(claimRepo, publisher, log),
		Survey:       services.NewSurveyService(surveyRepo, log),
	}
}

// Options configure the HTTP layer.
type Options struct {
	ServiceName     string
	MaxUploadMB     int
	RateCounter     middleware.RateCounter // nil disables rate limiting
	RateLimitCount  int
	RateLimitPeriod time.Duration
}

// New creates the Fiber app with middleware, routes, /health and /metrics.
func New(svc Services, opts Options, log *zap.Logger) *fiber.App {
	if opts.ServiceName == "" {
		opts.ServiceName = defaultServiceName
	}
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = 10
	}

	app := fiber.New(fiber.Config{
		AppName:      opts.ServiceName,
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    opts.MaxUploadMB * 1024 * 1024,
	})

	httpMetrics := metrics.NewHTTPMetrics(opts.ServiceName)
	app.Use(httpMetrics.Middleware())
	app.Use(logger.Middleware(log))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	app.Get("/metrics", httpMetrics.Handler())

	guards := handlers.Guards{
		Auth:      middleware.AuthRequired(svc.Auth),
		Admin:     middleware.RequireRole(models.RoleAdmin),
		RateLimit: middleware.RateLimiter(opts.RateCounter, opts.RateLimitCount, opts.RateLimitPeriod),
	}

	handlers.NewAuthHandler(svc.Auth).RegisterRoutes(app, guards)
	handlers.NewCatalogHandler(svc.Catalog).RegisterRoutes(app, guards)
	handlers.NewRegistrationHandler(svc.Registration).RegisterRoutes(app, guards)
	handlers.NewWarrantyHandler(svc.Warranty).RegisterRoutes(app, guards)
	handlers.NewSurveyHandler(svc.Survey).RegisterRoutes(app, guards)

	return app
}
