package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dropme-cab/service-rides/internal/application"
	"github.com/dropme-cab/service-rides/internal/auth"
	"github.com/dropme-cab/service-rides/internal/config"
	"github.com/dropme-cab/service-rides/internal/database"
	"github.com/dropme-cab/service-rides/internal/domain/trip"
	rideEvents "github.com/dropme-cab/service-rides/internal/events"
	"github.com/dropme-cab/service-rides/internal/geo"
	"github.com/dropme-cab/service-rides/internal/handler"
	"github.com/dropme-cab/service-rides/internal/kafka"
	"github.com/dropme-cab/service-rides/internal/logger"
	"github.com/dropme-cab/service-rides/internal/middleware"
	"github.com/dropme-cab/service-rides/internal/repository"
	"github.com/dropme-cab/service-rides/internal/routing"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, "service-rides")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-rides",
		zap.String("port", cfg.Port),
	)

	// Connect to database
	db, err := database.Connect(cfg.DB.DSN(), log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(&repository.TripSessionModel{}); err != nil {
		log.Fatal("failed to run auto-migration", zap.Error(err))
	}
	log.Info("database migration completed")

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(
		cfg.JWT.Secret,
		15*time.Minute,
		7*24*time.Hour,
	)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Initialize repository and providers
	sessionRepo := repository.NewGormSessionRepository(db)

	directory := geo.NewNominatimDirectory(cfg.Geo.BaseURL,
		geo.WithUserAgent(cfg.Geo.UserAgent),
		geo.WithMaxResults(cfg.Geo.MaxResults),
		geo.WithRateLimit(cfg.Geo.RatePerSec),
		geo.WithHTTPClient(&http.Client{Timeout: cfg.Geo.Timeout}),
		geo.WithLogger(log),
	)

	estimator := routing.NewOSRMEstimator(cfg.Routing.OSRMBaseURL,
		routing.WithHTTPClient(&http.Client{Timeout: cfg.Routing.Timeout}),
		routing.WithLogger(log),
	)

	// Seed the eligibility rules from config; the service-area consumer
	// replaces them at runtime.
	rules := trip.NewRuleSet(trip.RulesConfig{
		OutstationThresholdKm: cfg.Eligibility.OutstationThresholdKm,
		Area: trip.AreaConfig{
			AllowedCities: cfg.Eligibility.AllowedCities,
			AllowedStates: cfg.Eligibility.AllowedStates,
		},
		OutstationDisallowed: cfg.Eligibility.OutstationDisallowed,
	})

	debouncer := application.NewDebouncer(cfg.Resolution.DebounceWindow)
	defer debouncer.Stop()

	// Initialize application service
	resolutionService := application.NewResolutionService(
		sessionRepo,
		directory,
		estimator,
		kafkaProducer,
		rules,
		debouncer,
		cfg.Resolution.MinQueryLength,
		cfg.Resolution.GeolocateExpiry,
		log,
	)

	// Initialize and start the service-area consumer in a goroutine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	groupID := cfg.Kafka.GroupPrefix + "rides-service"
	areaConsumer := rideEvents.NewServiceAreaConsumer(
		cfg.Kafka.Brokers,
		groupID,
		rules,
		log,
	)
	defer func() { _ = areaConsumer.Close() }()

	go func() {
		log.Info("starting service-area consumer")
		if err := areaConsumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error("service-area consumer error", zap.Error(err))
		}
	}()

	// Initialize HTTP handlers
	tripHandler := handler.NewTripHandler(resolutionService)
	adminHandler := handler.NewAdminTripHandler(resolutionService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := handler.NewHealthHandler(db, "service-rides")
	healthHandler.RegisterRoutes(router)

	// Register routes
	tripHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	adminHandler.RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-rides...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-rides stopped")
}
