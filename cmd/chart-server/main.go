package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/emr/chart/internal/config"
	"github.com/emr/chart/internal/domain/conditions"
	"github.com/emr/chart/internal/domain/orders"
	"github.com/emr/chart/internal/platform/auth"
	"github.com/emr/chart/internal/platform/db"
	"github.com/emr/chart/internal/platform/i18n"
	"github.com/emr/chart/internal/platform/middleware"
	"github.com/emr/chart/internal/platform/notification"
	"github.com/emr/chart/internal/platform/workspace"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chart-server",
		Short: "Clinical chart API server",
	}

	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the chart API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	}

	// Audit middleware
	e.Use(middleware.Audit(logger))

	// API groups
	api := e.Group("/api")
	fhirGroup := e.Group("/fhir")

	// Display strings for the condition list
	translator := i18n.New(cfg.DefaultLocale)
	translator.Add("en", "conditions.onset.layout", "January 2, 2006")
	translator.Add("en", "conditions.onset.placeholder", cfg.DatePlaceholder)

	// Shell plumbing: toast queue and workspace launcher
	notifier := notification.NewStore(logger)
	notifier.RegisterRoutes(api)
	launcher := workspace.NewLauncher(logger)

	// Conditions
	condRepo := conditions.NewRepoPG(pool)
	condSvc := conditions.NewService(condRepo, logger)
	condHandler := conditions.NewHandler(condSvc, translator, cfg.DefaultPageSize)
	condHandler.RegisterRoutes(api, fhirGroup)

	// Orders
	orderRepo := orders.NewRepoPG(pool)
	orderSvc := orders.NewService(orderRepo, logger)
	orderHandler := orders.NewHandler(orderSvc, launcher, notifier, logger)
	orderHandler.RegisterRoutes(api, fhirGroup)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
