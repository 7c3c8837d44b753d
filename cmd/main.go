package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/felixvaughn/themachine-backend/internal/db"
	"github.com/felixvaughn/themachine-backend/internal/demo"
	"github.com/felixvaughn/themachine-backend/internal/handlers"
	"github.com/felixvaughn/themachine-backend/internal/logger"
	"github.com/felixvaughn/themachine-backend/internal/middleware"
	"github.com/felixvaughn/themachine-backend/internal/realtime"
	"github.com/felixvaughn/themachine-backend/internal/repos"
	"github.com/felixvaughn/themachine-backend/internal/server"
	"github.com/felixvaughn/themachine-backend/internal/services"
	"github.com/felixvaughn/themachine-backend/internal/sweeper"
	"github.com/felixvaughn/themachine-backend/internal/utils"
)

func main() {
	_ = godotenv.Load()

	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	allowOrigins := []string{
		utils.GetEnv("CORS_ORIGIN", "http://localhost:3000", log),
		"http://localhost:5173",
	}

	// Storage and bus. Live mode needs both Postgres and Redis; anything
	// less and the whole system drops to demo mode, fully self-contained:
	// in-memory sqlite plus an in-process bus. The choice is made once and
	// injected everywhere.
	appMode := "demo"
	if os.Getenv("POSTGRES_HOST") != "" && os.Getenv("REDIS_ADDR") != "" {
		appMode = "live"
	} else {
		log.Info("Live config incomplete, running in demo mode",
			"postgres", os.Getenv("POSTGRES_HOST") != "",
			"redis", os.Getenv("REDIS_ADDR") != "")
	}

	var dbService *db.Service
	var bus realtime.Bus
	if appMode == "live" {
		dbService, err = db.NewPostgresService(log)
		if err != nil {
			log.Error("Postgres init failed", "error", err)
			os.Exit(1)
		}
		bus, err = realtime.NewRedisBus(log)
		if err != nil {
			log.Error("Redis init failed", "error", err)
			os.Exit(1)
		}
	} else {
		dbService, err = db.NewSQLiteService(log)
		if err != nil {
			log.Error("SQLite init failed", "error", err)
			os.Exit(1)
		}
		bus = realtime.NewMemoryBus(log)
	}
	if err = dbService.AutoMigrateAll(); err != nil {
		log.Error("Auto migration failed", "error", err)
		os.Exit(1)
	}
	gdb := dbService.DB()
	log.Info("Storage ready", "mode", appMode)

	// Repos
	log.Info("Setting up repos from main...")
	userRepo := repos.NewUserRepo(gdb, log)
	userTokenRepo := repos.NewUserTokenRepo(gdb, log)
	videoRepo := repos.NewVideoRepo(gdb, log)
	slotRepo := repos.NewSessionSlotRepo(gdb, log)
	eventRepo := repos.NewScrollEventRepo(gdb, log)
	cardRepo := repos.NewTextCardRepo(gdb, log)
	summaryRepo := repos.NewSessionSummaryRepo(gdb, log)
	reportRepo := repos.NewFieldReportRepo(gdb, log)
	leaderboardRepo := repos.NewLeaderboardRepo(gdb, log)

	// Realtime hub
	log.Info("Setting up realtime hub now...")
	hub := realtime.NewHub(bus, log)

	// Services
	log.Info("Setting up services from main...")
	authService := services.NewAuthService(gdb, log, userRepo, userTokenRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
	userService := services.NewUserService(gdb, log, userRepo)
	videoService := services.NewVideoService(gdb, log, videoRepo)
	sessionService := services.NewSessionService(gdb, log, slotRepo, hub)
	telemetryService := services.NewTelemetryService(gdb, log, eventRepo, cardRepo, hub)
	summaryService := services.NewSummaryService(gdb, log, summaryRepo, eventRepo, videoRepo, sessionService)
	fieldReportService := services.NewFieldReportService(gdb, log, reportRepo)
	leaderboardService := services.NewLeaderboardService(gdb, log, leaderboardRepo)

	if appMode == "demo" {
		if _, err := videoService.SeedCatalog(context.Background(), demo.Catalog()); err != nil {
			log.Error("Failed to seed demo catalog", "error", err)
			os.Exit(1)
		}
	}

	// Sweeper
	sessionSweeper := sweeper.New(log, sessionService)
	if err := sessionSweeper.Start(); err != nil {
		log.Error("Failed to start sweeper", "error", err)
		os.Exit(1)
	}
	defer sessionSweeper.Stop()

	// Handlers
	log.Info("Setting up handlers from main...")
	healthcheckHandler := handlers.NewHealthcheckHandler()
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	videoHandler := handlers.NewVideoHandler(videoService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	eventsHandler := handlers.NewEventsHandler(telemetryService, hub)
	summaryHandler := handlers.NewSummaryHandler(summaryService)
	fieldReportHandler := handlers.NewFieldReportHandler(fieldReportService)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		HealthcheckHandler: healthcheckHandler,
		AuthHandler:        authHandler,
		AuthMiddleware:     authMiddleware,
		UserHandler:        userHandler,
		VideoHandler:       videoHandler,
		SessionHandler:     sessionHandler,
		EventsHandler:      eventsHandler,
		SummaryHandler:     summaryHandler,
		FieldReportHandler: fieldReportHandler,
		LeaderboardHandler: leaderboardHandler,
		AllowOrigins:       allowOrigins,
	})

	port := utils.GetEnv("PORT", "8080", log)
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		fmt.Printf("Server listening on :%s\n", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-stopCtx.Done()

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("Shutdown did not finish cleanly", "error", err)
	}
	if err := bus.Close(); err != nil {
		log.Warn("Bus close failed", "error", err)
	}
}
