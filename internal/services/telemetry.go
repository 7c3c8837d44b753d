package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/felixvaughn/themachine-backend/internal/logger"
	"github.com/felixvaughn/themachine-backend/internal/ratelimit"
	"github.com/felixvaughn/themachine-backend/internal/realtime"
	"github.com/felixvaughn/themachine-backend/internal/repos"
	"github.com/felixvaughn/themachine-backend/internal/requestdata"
	"github.com/felixvaughn/themachine-backend/internal/types"
)

// ErrRateLimited marks an event rejected by a sender's sliding window.
// Handlers translate it to 429.
var ErrRateLimited = errors.New("rate limit exceeded")

// Per-sender budgets within any rolling minute.
const (
	scrollEventLimit = 60
	textCardLimit    = 10
	cameraFrameLimit = 30
	limitWindow      = time.Minute
)

type TelemetryService interface {
	// HandleEvent fans a client event out to the session and, for durable
	// kinds, appends it to storage. Camera frames are relayed only.
	HandleEvent(ctx context.Context, sessionID uuid.UUID, ev realtime.Event) error
	GetScrollEvents(ctx context.Context, sessionID uuid.UUID) ([]*types.ScrollEvent, error)
	GetTextCards(ctx context.Context, sessionID uuid.UUID) ([]*types.TextCard, error)
}

type limiterKey struct {
	sessionID uuid.UUID
	userID    uuid.UUID
	kind      realtime.Kind
}

type telemetryService struct {
	db        *gorm.DB
	log       *logger.Logger
	eventRepo repos.ScrollEventRepo
	cardRepo  repos.TextCardRepo
	hub       *realtime.Hub

	limitersMu sync.Mutex
	limiters   map[limiterKey]*ratelimit.Limiter
}

func NewTelemetryService(
	db *gorm.DB,
	log *logger.Logger,
	eventRepo repos.ScrollEventRepo,
	cardRepo repos.TextCardRepo,
	hub *realtime.Hub,
) TelemetryService {
	return &telemetryService{
		db:        db,
		log:       log.With("service", "TelemetryService"),
		eventRepo: eventRepo,
		cardRepo:  cardRepo,
		hub:       hub,
		limiters:  make(map[limiterKey]*ratelimit.Limiter),
	}
}

func (ts *telemetryService) HandleEvent(ctx context.Context, sessionID uuid.UUID, ev realtime.Event) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return fmt.Errorf("No request data found in context")
	}

	switch e := ev.(type) {
	case realtime.ScrollEvent:
		if !ts.admit(sessionID, rd.UserID, realtime.KindScrollEvent, scrollEventLimit) {
			return ErrRateLimited
		}
		if err := ts.broadcast(sessionID, ev); err != nil {
			return err
		}
		ts.persistScrollEvent(ctx, sessionID, e)
		return nil
	case realtime.TextCard:
		if !ts.admit(sessionID, rd.UserID, realtime.KindTextCard, textCardLimit) {
			return ErrRateLimited
		}
		if err := ts.broadcast(sessionID, ev); err != nil {
			return err
		}
		ts.persistTextCard(ctx, sessionID, e)
		return nil
	case realtime.CameraFrame:
		if !ts.admit(sessionID, rd.UserID, realtime.KindCameraFrame, cameraFrameLimit) {
			return ErrRateLimited
		}
		// Frames are ephemeral: relayed to the Optimizer, never stored.
		return ts.broadcast(sessionID, ev)
	case realtime.QueueVideo, realtime.Countdown:
		return ts.broadcast(sessionID, ev)
	case realtime.SessionStart, realtime.SessionEnd:
		// Lifecycle signals come from Advance, not from clients.
		return fmt.Errorf("Event %q is not client-sendable", ev.Kind())
	default:
		return fmt.Errorf("Unsupported event %q", ev.Kind())
	}
}

func (ts *telemetryService) GetScrollEvents(ctx context.Context, sessionID uuid.UUID) ([]*types.ScrollEvent, error) {
	events, eErr := ts.eventRepo.GetBySessionID(ctx, nil, sessionID)
	if eErr != nil {
		ts.log.Warn("Failed to load scroll events", "error", eErr)
		return nil, fmt.Errorf("Failed to load scroll events: %w", eErr)
	}
	return events, nil
}

func (ts *telemetryService) GetTextCards(ctx context.Context, sessionID uuid.UUID) ([]*types.TextCard, error) {
	cards, cErr := ts.cardRepo.GetBySessionID(ctx, nil, sessionID)
	if cErr != nil {
		ts.log.Warn("Failed to load text cards", "error", cErr)
		return nil, fmt.Errorf("Failed to load text cards: %w", cErr)
	}
	return cards, nil
}

// admit checks the sender's sliding window for the event class. A
// rejection leaves the window untouched, so a throttled sender regains
// capacity purely by waiting.
func (ts *telemetryService) admit(sessionID, userID uuid.UUID, kind realtime.Kind, max int) bool {
	key := limiterKey{sessionID: sessionID, userID: userID, kind: kind}
	ts.limitersMu.Lock()
	limiter, ok := ts.limiters[key]
	if !ok {
		limiter = ratelimit.New(max, limitWindow)
		ts.limiters[key] = limiter
	}
	ts.limitersMu.Unlock()
	admitted := limiter.TryAdmit()
	if !admitted {
		ts.log.Warn("Rate limit exceeded", "sessionID", sessionID, "userID", userID, "kind", string(kind))
	}
	return admitted
}

func (ts *telemetryService) broadcast(sessionID uuid.UUID, ev realtime.Event) error {
	if pErr := ts.hub.Publish(sessionID, ev); pErr != nil {
		ts.log.Warn("Failed to broadcast event", "sessionID", sessionID, "event", string(ev.Kind()), "error", pErr)
		return fmt.Errorf("Failed to broadcast event: %w", pErr)
	}
	return nil
}

// Durable writes happen after the broadcast so a slow disk never delays
// the live feed; a failed write is logged and the stream moves on.
func (ts *telemetryService) persistScrollEvent(ctx context.Context, sessionID uuid.UUID, e realtime.ScrollEvent) {
	videoID, pErr := uuid.Parse(e.VideoID)
	if pErr != nil {
		ts.log.Warn("Scroll event has invalid video id", "videoID", e.VideoID)
		return
	}
	row := &types.ScrollEvent{
		SessionID:      sessionID,
		VideoID:        videoID,
		DwellMS:        e.DwellMS,
		ScrollVelocity: e.ScrollVelocity,
		QueuedBy:       e.QueuedBy,
		TimestampMS:    e.TimestampMS,
		InfoGain:       e.InfoGain,
	}
	if _, cErr := ts.eventRepo.Create(ctx, nil, []*types.ScrollEvent{row}); cErr != nil {
		ts.log.Warn("Failed to persist scroll event", "sessionID", sessionID, "error", cErr)
	}
}

func (ts *telemetryService) persistTextCard(ctx context.Context, sessionID uuid.UUID, e realtime.TextCard) {
	row := &types.TextCard{
		ID:        uuid.New(),
		SessionID: sessionID,
		Content:   e.Content,
		SentAtMS:  e.SentAtMS,
		SentAt:    time.Now(),
	}
	if _, cErr := ts.cardRepo.Create(ctx, nil, []*types.TextCard{row}); cErr != nil {
		ts.log.Warn("Failed to persist text card", "sessionID", sessionID, "error", cErr)
	}
}
