package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/felixvaughn/themachine-backend/internal/logger"
	"github.com/felixvaughn/themachine-backend/internal/realtime"
	"github.com/felixvaughn/themachine-backend/internal/repos"
	"github.com/felixvaughn/themachine-backend/internal/requestdata"
	"github.com/felixvaughn/themachine-backend/internal/session"
	"github.com/felixvaughn/themachine-backend/internal/types"
)

type testEnv struct {
	db        *gorm.DB
	log       *logger.Logger
	hub       *realtime.Hub
	sessions  SessionService
	telemetry TelemetryService
	summaries SummaryService
	slotRepo  repos.SessionSlotRepo
	videoRepo repos.VideoRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	// A per-test database; shared cache keeps it alive across connections.
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

	hub := realtime.NewHub(realtime.NewMemoryBus(log), log)
	slotRepo := repos.NewSessionSlotRepo(gdb, log)
	eventRepo := repos.NewScrollEventRepo(gdb, log)
	cardRepo := repos.NewTextCardRepo(gdb, log)
	summaryRepo := repos.NewSessionSummaryRepo(gdb, log)
	videoRepo := repos.NewVideoRepo(gdb, log)

	sessions := NewSessionService(gdb, log, slotRepo, hub)
	return &testEnv{
		db:        gdb,
		log:       log,
		hub:       hub,
		sessions:  sessions,
		telemetry: NewTelemetryService(gdb, log, eventRepo, cardRepo, hub),
		summaries: NewSummaryService(gdb, log, summaryRepo, eventRepo, videoRepo, sessions),
		slotRepo:  slotRepo,
		videoRepo: videoRepo,
	}
}

func (env *testEnv) ctxAs(t *testing.T, userID uuid.UUID) context.Context {
	t.Helper()
	return requestdata.WithRequestData(context.Background(), &requestdata.RequestData{UserID: userID})
}

func (env *testEnv) seedUser(t *testing.T, name string) *types.User {
	t.Helper()
	user := &types.User{
		ID:          uuid.New(),
		Email:       name + "@example.com",
		Password:    "irrelevant",
		DisplayName: name,
	}
	if err := env.db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func (env *testEnv) seedVideo(t *testing.T, youtubeID string, cerebral float64) *types.Video {
	t.Helper()
	video := &types.Video{
		ID:          uuid.New(),
		YoutubeID:   youtubeID,
		DimCerebral: cerebral,
		AddedAt:     time.Now(),
	}
	if err := env.db.Create(video).Error; err != nil {
		t.Fatalf("seed video: %v", err)
	}
	return video
}

func (env *testEnv) matchedSession(t *testing.T, optimizer, scroller *types.User) *types.SessionSlot {
	t.Helper()
	slot, matched, err := env.sessions.Match(env.ctxAs(t, optimizer.ID), string(session.RoleOptimizer))
	if err != nil {
		t.Fatalf("optimizer match: %v", err)
	}
	if matched {
		t.Fatal("first participant should not complete a match")
	}
	joined, matched, err := env.sessions.Match(env.ctxAs(t, scroller.ID), string(session.RoleScroller))
	if err != nil {
		t.Fatalf("scroller match: %v", err)
	}
	if !matched {
		t.Fatal("second participant should complete the match")
	}
	if joined.ID != slot.ID {
		t.Fatalf("scroller matched into a different slot: %s vs %s", joined.ID, slot.ID)
	}
	return joined
}

func TestMatchPairsOldestOpenSlot(t *testing.T) {
	env := newTestEnv(t)
	optimizer := env.seedUser(t, "optimizer")
	scroller := env.seedUser(t, "scroller")

	slot := env.matchedSession(t, optimizer, scroller)
	if slot.Status != string(session.StatusMatched) {
		t.Fatalf("expected matched status, got %s", slot.Status)
	}
	if slot.OptimizerID == nil || *slot.OptimizerID != optimizer.ID {
		t.Fatal("optimizer seat not claimed")
	}
	if slot.ScrollerID == nil || *slot.ScrollerID != scroller.ID {
		t.Fatal("scroller seat not claimed")
	}
}

func TestMatchSameRoleOpensSecondSlot(t *testing.T) {
	env := newTestEnv(t)
	first := env.seedUser(t, "first")
	second := env.seedUser(t, "second")

	a, _, err := env.sessions.Match(env.ctxAs(t, first.ID), string(session.RoleOptimizer))
	if err != nil {
		t.Fatalf("first match: %v", err)
	}
	b, matched, err := env.sessions.Match(env.ctxAs(t, second.ID), string(session.RoleOptimizer))
	if err != nil {
		t.Fatalf("second match: %v", err)
	}
	if matched {
		t.Fatal("two optimizers must not match each other")
	}
	if a.ID == b.ID {
		t.Fatal("expected a second slot for the same role")
	}
}

func TestAdvanceWalksLifecycle(t *testing.T) {
	env := newTestEnv(t)
	slot := env.matchedSession(t, env.seedUser(t, "opt"), env.seedUser(t, "scr"))

	steps := []struct {
		input session.Input
		want  session.Status
	}{
		{session.InputEnterLobby, session.StatusLobby},
		{session.InputBegin, session.StatusActive},
		{session.InputEnd, session.StatusReveal},
	}
	for _, step := range steps {
		advanced, err := env.sessions.Advance(context.Background(), slot.ID, step.input)
		if err != nil {
			t.Fatalf("advance %s: %v", step.input, err)
		}
		if advanced.Status != string(step.want) {
			t.Fatalf("after %s expected %s, got %s", step.input, step.want, advanced.Status)
		}
	}

	// Skipping ahead from reveal is rejected.
	if _, err := env.sessions.Advance(context.Background(), slot.ID, session.InputBegin); err == nil {
		t.Fatal("expected invalid transition to be rejected")
	}
}

func TestSummaryRebuildFromPersistedEvents(t *testing.T) {
	env := newTestEnv(t)
	optimizer := env.seedUser(t, "opt")
	scroller := env.seedUser(t, "scr")
	slot := env.matchedSession(t, optimizer, scroller)
	video := env.seedVideo(t, "abc123def45", 0.9)

	ctx := env.ctxAs(t, scroller.ID)
	dwells := []struct {
		dwell    int64
		queuedBy string
	}{
		{3000, "system"},
		{5000, "system"},
		{8000, "optimizer"},
		{9000, "optimizer"},
	}
	for i, d := range dwells {
		ev := realtime.ScrollEvent{
			VideoID:     video.ID.String(),
			DwellMS:     d.dwell,
			QueuedBy:    d.queuedBy,
			TimestampMS: int64(i+1) * 10000,
		}
		if err := env.telemetry.HandleEvent(ctx, slot.ID, ev); err != nil {
			t.Fatalf("handle event %d: %v", i, err)
		}
	}

	summary, err := env.summaries.BuildSummary(context.Background(), slot.ID)
	if err != nil {
		t.Fatalf("build summary: %v", err)
	}
	if summary.TotalVideosShown != 4 {
		t.Fatalf("expected 4 videos shown, got %d", summary.TotalVideosShown)
	}
	if summary.OptimizerVideosShown != 2 || summary.SystemVideosShown != 2 {
		t.Fatalf("expected 2/2 queuer split, got %d/%d", summary.OptimizerVideosShown, summary.SystemVideosShown)
	}
	if summary.DurationSeconds != 40 {
		t.Fatalf("expected 40s duration, got %d", summary.DurationSeconds)
	}
	if summary.AvgDwellOptimizerMS == nil || *summary.AvgDwellOptimizerMS != 8500 {
		t.Fatalf("unexpected optimizer dwell mean: %v", summary.AvgDwellOptimizerMS)
	}
	if summary.AvgDwellSystemMS == nil || *summary.AvgDwellSystemMS != 4000 {
		t.Fatalf("unexpected system dwell mean: %v", summary.AvgDwellSystemMS)
	}
	if summary.EngagementMultiplier != 8500.0/4000.0 {
		t.Fatalf("unexpected multiplier: %v", summary.EngagementMultiplier)
	}

	// Rebuilding from the same rows is idempotent.
	again, err := env.summaries.BuildSummary(context.Background(), slot.ID)
	if err != nil {
		t.Fatalf("rebuild summary: %v", err)
	}
	if again.OptimizerScore != summary.OptimizerScore || again.DurationSeconds != summary.DurationSeconds {
		t.Fatalf("rebuild changed results: %d vs %d", again.OptimizerScore, summary.OptimizerScore)
	}

	var count int64
	if err := env.db.Model(&types.SessionSummary{}).Where("session_id = ?", slot.ID).Count(&count).Error; err != nil {
		t.Fatalf("count summaries: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single summary row, got %d", count)
	}
}

func TestOptInResolvesReveal(t *testing.T) {
	env := newTestEnv(t)
	slot := env.matchedSession(t, env.seedUser(t, "opt"), env.seedUser(t, "scr"))
	for _, input := range []session.Input{session.InputEnterLobby, session.InputBegin, session.InputEnd} {
		if _, err := env.sessions.Advance(context.Background(), slot.ID, input); err != nil {
			t.Fatalf("advance %s: %v", input, err)
		}
	}
	if _, err := env.summaries.BuildSummary(context.Background(), slot.ID); err != nil {
		t.Fatalf("build summary: %v", err)
	}

	if _, err := env.summaries.RecordOptIn(context.Background(), slot.ID, "scroller", true); err != nil {
		t.Fatalf("scroller opt-in: %v", err)
	}
	loaded, err := env.sessions.GetSession(context.Background(), slot.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if loaded.Status != string(session.StatusReveal) {
		t.Fatalf("one answer must not resolve the reveal, got %s", loaded.Status)
	}

	if _, err := env.summaries.RecordOptIn(context.Background(), slot.ID, "optimizer", true); err != nil {
		t.Fatalf("optimizer opt-in: %v", err)
	}
	loaded, err = env.sessions.GetSession(context.Background(), slot.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if loaded.Status != string(session.StatusCall) {
		t.Fatalf("mutual opt-in should open the call, got %s", loaded.Status)
	}

	if err := env.summaries.RecordCallDuration(context.Background(), slot.ID, 120); err != nil {
		t.Fatalf("record call duration: %v", err)
	}
	loaded, err = env.sessions.GetSession(context.Background(), slot.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if loaded.Status != string(session.StatusCompleted) {
		t.Fatalf("ended call should complete the session, got %s", loaded.Status)
	}
}

func TestOptInDeclineCompletesSession(t *testing.T) {
	env := newTestEnv(t)
	slot := env.matchedSession(t, env.seedUser(t, "opt"), env.seedUser(t, "scr"))
	for _, input := range []session.Input{session.InputEnterLobby, session.InputBegin, session.InputEnd} {
		if _, err := env.sessions.Advance(context.Background(), slot.ID, input); err != nil {
			t.Fatalf("advance %s: %v", input, err)
		}
	}
	if _, err := env.summaries.BuildSummary(context.Background(), slot.ID); err != nil {
		t.Fatalf("build summary: %v", err)
	}

	if _, err := env.summaries.RecordOptIn(context.Background(), slot.ID, "scroller", false); err != nil {
		t.Fatalf("scroller decline: %v", err)
	}
	loaded, err := env.sessions.GetSession(context.Background(), slot.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if loaded.Status != string(session.StatusCompleted) {
		t.Fatalf("a decline should resolve immediately, got %s", loaded.Status)
	}
}

func TestTelemetryRateLimitRejectsBurst(t *testing.T) {
	env := newTestEnv(t)
	scroller := env.seedUser(t, "scr")
	slot := env.matchedSession(t, env.seedUser(t, "opt"), scroller)
	ctx := env.ctxAs(t, scroller.ID)

	card := realtime.TextCard{Content: "hello", SentAtMS: 1}
	for i := 0; i < textCardLimit; i++ {
		if err := env.telemetry.HandleEvent(ctx, slot.ID, card); err != nil {
			t.Fatalf("card %d rejected: %v", i, err)
		}
	}
	if err := env.telemetry.HandleEvent(ctx, slot.ID, card); err != ErrRateLimited {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	// A different sender in the same session has their own budget.
	otherCtx := env.ctxAs(t, env.seedUser(t, "other").ID)
	if err := env.telemetry.HandleEvent(otherCtx, slot.ID, card); err != nil {
		t.Fatalf("other sender should be admitted: %v", err)
	}
}

func TestCameraFramesAreNotPersisted(t *testing.T) {
	env := newTestEnv(t)
	scroller := env.seedUser(t, "scr")
	slot := env.matchedSession(t, env.seedUser(t, "opt"), scroller)
	ctx := env.ctxAs(t, scroller.ID)

	frame := realtime.CameraFrame{Frame: "ZnJhbWU=", Timestamp: 1}
	if err := env.telemetry.HandleEvent(ctx, slot.ID, frame); err != nil {
		t.Fatalf("handle frame: %v", err)
	}
	var events int64
	if err := env.db.Model(&types.ScrollEvent{}).Count(&events).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	var cards int64
	if err := env.db.Model(&types.TextCard{}).Count(&cards).Error; err != nil {
		t.Fatalf("count cards: %v", err)
	}
	if events != 0 || cards != 0 {
		t.Fatalf("camera frames must leave no rows, got %d events %d cards", events, cards)
	}
}
