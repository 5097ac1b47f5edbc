package router

import (
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/egi-ims/messages-backend/internal/auth"
	"github.com/egi-ims/messages-backend/internal/checkin"
	"github.com/egi-ims/messages-backend/internal/handlers"
	"github.com/egi-ims/messages-backend/internal/metrics"
	"github.com/egi-ims/messages-backend/internal/middleware"
	"github.com/egi-ims/messages-backend/internal/models"
	"github.com/egi-ims/messages-backend/internal/repositories"
	"github.com/egi-ims/messages-backend/internal/services"
	"github.com/egi-ims/messages-backend/pkg/config"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo, log zerolog.Logger) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	e.Use(metrics.Middleware())
	e.Use(eMiddleware.RequestLoggerWithConfig(eMiddleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v eMiddleware.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("Request")
			return nil
		},
	}))
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, pgdb *gorm.DB, checkinClient *checkin.Client, cfg *config.Config, log zerolog.Logger) error {
	if err := pgdb.AutoMigrate(&models.Message{}); err != nil {
		return err
	}

	// Open endpoints
	e.GET("/health", handlers.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// --- Initialize repositories and services ---
	messageRepo := repositories.NewPostgresMessageRepository(pgdb)
	messageService := services.NewMessageService(messageRepo, checkinClient, log)

	// --- Protected routes (require VO membership) ---
	api := e.Group("/api/v1")
	api.Use(middleware.OIDCAuth(checkinClient, cfg.Vo, log))
	api.Use(middleware.RequireCapability(auth.CapabilityIMSUser))

	messageHandler := handlers.NewMessageHandler(messageService)
	messageHandler.RegisterMessageRoutes(api)

	userHandler := handlers.NewUserHandler(checkinClient)
	userHandler.RegisterUserRoutes(api)

	log.Info().Msg("All routes configured")
	return nil
}
