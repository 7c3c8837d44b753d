package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/felixvaughn/themachine-backend/internal/handlers"
	"github.com/felixvaughn/themachine-backend/internal/middleware"
)

type RouterConfig struct {
	HealthcheckHandler *handlers.HealthcheckHandler
	AuthHandler        *handlers.AuthHandler
	AuthMiddleware     *middleware.AuthMiddleware
	UserHandler        *handlers.UserHandler
	VideoHandler       *handlers.VideoHandler
	SessionHandler     *handlers.SessionHandler
	EventsHandler      *handlers.EventsHandler
	SummaryHandler     *handlers.SummaryHandler
	FieldReportHandler *handlers.FieldReportHandler
	LeaderboardHandler *handlers.LeaderboardHandler
	AllowOrigins       []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", cfg.HealthcheckHandler.Healthcheck)
	router.POST("/api/register", cfg.AuthHandler.Register)
	router.POST("/api/login", cfg.AuthHandler.Login)
	router.GET("/api/leaderboard", cfg.LeaderboardHandler.Top)
	router.GET("/api/videos", cfg.VideoHandler.ListVideos)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Auth
	protected.POST("/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/logout", cfg.AuthHandler.Logout)
	// User
	protected.GET("/user", cfg.UserHandler.GetUser)
	// Catalog
	protected.GET("/api/videos/default-queue", cfg.VideoHandler.DefaultQueue)
	// Sessions
	protected.POST("/api/sessions/match", cfg.SessionHandler.Match)
	protected.POST("/api/sessions", cfg.SessionHandler.CreateSession)
	protected.GET("/api/sessions/:id", cfg.SessionHandler.GetSession)
	protected.POST("/api/sessions/:id/join", cfg.SessionHandler.JoinSession)
	protected.POST("/api/sessions/:id/advance", cfg.SessionHandler.Advance)
	// Realtime
	protected.GET("/api/sessions/:id/stream", cfg.EventsHandler.Stream)
	protected.POST("/api/sessions/:id/events", cfg.EventsHandler.PostEvent)
	protected.GET("/api/sessions/:id/events", cfg.EventsHandler.GetScrollEvents)
	protected.GET("/api/sessions/:id/cards", cfg.EventsHandler.GetTextCards)
	// Reveal
	protected.POST("/api/sessions/:id/summary", cfg.SummaryHandler.BuildSummary)
	protected.GET("/api/sessions/:id/summary", cfg.SummaryHandler.GetSummary)
	protected.POST("/api/sessions/:id/optin", cfg.SummaryHandler.OptIn)
	protected.POST("/api/sessions/:id/call", cfg.SummaryHandler.RecordCall)
	// Field reports
	protected.POST("/api/sessions/:id/reports", cfg.FieldReportHandler.SubmitReport)
	protected.GET("/api/sessions/:id/reports", cfg.FieldReportHandler.GetReports)
	protected.GET("/api/reports", cfg.FieldReportHandler.ListShared)

	return router
}
