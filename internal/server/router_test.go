package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/felixvaughn/themachine-backend/internal/handlers"
	"github.com/felixvaughn/themachine-backend/internal/logger"
	"github.com/felixvaughn/themachine-backend/internal/middleware"
	"github.com/felixvaughn/themachine-backend/internal/realtime"
	"github.com/felixvaughn/themachine-backend/internal/repos"
	"github.com/felixvaughn/themachine-backend/internal/services"
	"github.com/felixvaughn/themachine-backend/internal/types"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.Video{},
		&types.SessionSlot{},
		&types.ScrollEvent{},
		&types.TextCard{},
		&types.SessionSummary{},
		&types.FieldReport{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	userRepo := repos.NewUserRepo(gdb, log)
	userTokenRepo := repos.NewUserTokenRepo(gdb, log)
	videoRepo := repos.NewVideoRepo(gdb, log)
	slotRepo := repos.NewSessionSlotRepo(gdb, log)
	eventRepo := repos.NewScrollEventRepo(gdb, log)
	cardRepo := repos.NewTextCardRepo(gdb, log)
	summaryRepo := repos.NewSessionSummaryRepo(gdb, log)
	reportRepo := repos.NewFieldReportRepo(gdb, log)
	leaderboardRepo := repos.NewLeaderboardRepo(gdb, log)

	hub := realtime.NewHub(realtime.NewMemoryBus(log), log)
	authService := services.NewAuthService(gdb, log, userRepo, userTokenRepo, "testsecret", time.Hour, 24*time.Hour)
	userService := services.NewUserService(gdb, log, userRepo)
	videoService := services.NewVideoService(gdb, log, videoRepo)
	sessionService := services.NewSessionService(gdb, log, slotRepo, hub)
	telemetryService := services.NewTelemetryService(gdb, log, eventRepo, cardRepo, hub)
	summaryService := services.NewSummaryService(gdb, log, summaryRepo, eventRepo, videoRepo, sessionService)
	fieldReportService := services.NewFieldReportService(gdb, log, reportRepo)
	leaderboardService := services.NewLeaderboardService(gdb, log, leaderboardRepo)

	return NewRouter(RouterConfig{
		HealthcheckHandler: handlers.NewHealthcheckHandler(),
		AuthHandler:        handlers.NewAuthHandler(authService),
		AuthMiddleware:     middleware.NewAuthMiddleware(log, authService),
		UserHandler:        handlers.NewUserHandler(userService),
		VideoHandler:       handlers.NewVideoHandler(videoService),
		SessionHandler:     handlers.NewSessionHandler(sessionService),
		EventsHandler:      handlers.NewEventsHandler(telemetryService, hub),
		SummaryHandler:     handlers.NewSummaryHandler(summaryService),
		FieldReportHandler: handlers.NewFieldReportHandler(fieldReportService),
		LeaderboardHandler: handlers.NewLeaderboardHandler(leaderboardService),
		AllowOrigins:       []string{"http://localhost:3000"},
	})
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func registerAndLogin(t *testing.T, router *gin.Engine, email string) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/register", "", gin.H{
		"email":    email,
		"password": "longenoughpassword",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, router, http.MethodPost, "/api/login", "", gin.H{
		"email":    email,
		"password": "longenoughpassword",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("login returned no access token")
	}
	return resp.AccessToken
}

func TestHealthcheck(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/healthcheck", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	router := newTestRouter(t)
	for _, path := range []string{"/user", "/api/videos/default-queue", "/api/sessions/match"} {
		method := http.MethodGet
		if path == "/api/sessions/match" {
			method = http.MethodPost
		}
		w := doJSON(t, router, method, path, "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, w.Code)
		}
	}
}

func TestRegisterLoginAndGetUser(t *testing.T) {
	router := newTestRouter(t)
	token := registerAndLogin(t, router, "scroller@example.com")

	w := doJSON(t, router, http.MethodGet, "/user", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get user: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		User types.User `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if resp.User.Email != "scroller@example.com" {
		t.Fatalf("unexpected user email %q", resp.User.Email)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	router := newTestRouter(t)
	registerAndLogin(t, router, "dupe@example.com")
	w := doJSON(t, router, http.MethodPost, "/api/register", "", gin.H{
		"email":    "dupe@example.com",
		"password": "longenoughpassword",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate email, got %d", w.Code)
	}
}

func TestMatchThroughAPI(t *testing.T) {
	router := newTestRouter(t)
	optToken := registerAndLogin(t, router, "opt@example.com")
	scrToken := registerAndLogin(t, router, "scr@example.com")

	w := doJSON(t, router, http.MethodPost, "/api/sessions/match", optToken, gin.H{"role": "optimizer"})
	if w.Code != http.StatusOK {
		t.Fatalf("optimizer match: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var first struct {
		Session types.SessionSlot `json:"session"`
		Matched bool              `json:"matched"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode match: %v", err)
	}
	if first.Matched {
		t.Fatal("first participant must not complete a match")
	}

	w = doJSON(t, router, http.MethodPost, "/api/sessions/match", scrToken, gin.H{"role": "scroller"})
	if w.Code != http.StatusOK {
		t.Fatalf("scroller match: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var second struct {
		Session types.SessionSlot `json:"session"`
		Matched bool              `json:"matched"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode match: %v", err)
	}
	if !second.Matched {
		t.Fatal("second participant should complete the match")
	}
	if second.Session.ID != first.Session.ID {
		t.Fatal("participants landed in different slots")
	}
	if second.Session.Status != "matched" {
		t.Fatalf("expected matched status, got %s", second.Session.Status)
	}
}

func TestPostEventRateLimitSurfacesAs429(t *testing.T) {
	router := newTestRouter(t)
	optToken := registerAndLogin(t, router, "opt2@example.com")
	scrToken := registerAndLogin(t, router, "scr2@example.com")

	w := doJSON(t, router, http.MethodPost, "/api/sessions/match", optToken, gin.H{"role": "optimizer"})
	var match struct {
		Session types.SessionSlot `json:"session"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &match); err != nil {
		t.Fatalf("decode match: %v", err)
	}
	doJSON(t, router, http.MethodPost, "/api/sessions/match", scrToken, gin.H{"role": "scroller"})

	path := fmt.Sprintf("/api/sessions/%s/events", match.Session.ID)
	card := gin.H{"type": "text_card", "content": "hi", "sent_at_ms": 1}
	for i := 0; i < 10; i++ {
		w = doJSON(t, router, http.MethodPost, path, optToken, card)
		if w.Code != http.StatusOK {
			t.Fatalf("card %d: expected 200, got %d: %s", i, w.Code, w.Body.String())
		}
	}
	w = doJSON(t, router, http.MethodPost, path, optToken, card)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}

func TestPostEventRejectsUnknownType(t *testing.T) {
	router := newTestRouter(t)
	token := registerAndLogin(t, router, "poster@example.com")
	w := doJSON(t, router, http.MethodPost, "/api/sessions/match", token, gin.H{"role": "optimizer"})
	var match struct {
		Session types.SessionSlot `json:"session"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &match); err != nil {
		t.Fatalf("decode match: %v", err)
	}
	path := fmt.Sprintf("/api/sessions/%s/events", match.Session.ID)
	w = doJSON(t, router, http.MethodPost, path, token, gin.H{"type": "mystery"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown event type, got %d", w.Code)
	}
}
