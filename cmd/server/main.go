package main

import (
	"github.com/labstack/echo/v4"

	"github.com/egi-ims/messages-backend/internal/checkin"
	"github.com/egi-ims/messages-backend/internal/metrics"
	"github.com/egi-ims/messages-backend/internal/router"
	"github.com/egi-ims/messages-backend/pkg/config"
	"github.com/egi-ims/messages-backend/pkg/logx"
	"github.com/egi-ims/messages-backend/validators"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log := logx.New(cfg.LogLevel, cfg.Env)

	// Register prometheus collectors
	metrics.Init()

	// Initialize database connection
	db, err := config.InitDB()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.CloseDB()

	// Initialize the Check-in client
	checkinClient, err := checkin.New(checkin.Config{
		Server:   cfg.CheckinServer,
		Username: cfg.CheckinUsername,
		Password: cfg.CheckinPassword,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Check-in client")
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Setup global middleware
	router.SetupMiddleware(e, log)

	// Validator
	e.Validator = validators.NewValidator()

	// Setup routes and dependencies
	if err := router.SetupRoutes(e, db.Postgres, checkinClient, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up routes")
	}

	// Start server
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}
