package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/felixvaughn/themachine-backend/internal/logger"
	"github.com/felixvaughn/themachine-backend/internal/repos"
	"github.com/felixvaughn/themachine-backend/internal/scoring"
	"github.com/felixvaughn/themachine-backend/internal/session"
	"github.com/felixvaughn/themachine-backend/internal/types"
)

type SummaryService interface {
	// BuildSummary recomputes the session's summary from its persisted
	// scroll events and upserts the result. Safe to call repeatedly.
	BuildSummary(ctx context.Context, sessionID uuid.UUID) (*types.SessionSummary, error)
	GetSummary(ctx context.Context, sessionID uuid.UUID) (*types.SessionSummary, error)
	// RecordOptIn stores one side's call decision and, once both sides have
	// answered, advances the session out of reveal.
	RecordOptIn(ctx context.Context, sessionID uuid.UUID, role string, accepted bool) (*types.SessionSummary, error)
	RecordCallDuration(ctx context.Context, sessionID uuid.UUID, seconds int) error
}

type summaryService struct {
	db          *gorm.DB
	log         *logger.Logger
	summaryRepo repos.SessionSummaryRepo
	eventRepo   repos.ScrollEventRepo
	videoRepo   repos.VideoRepo
	sessions    SessionService
}

func NewSummaryService(
	db *gorm.DB,
	log *logger.Logger,
	summaryRepo repos.SessionSummaryRepo,
	eventRepo repos.ScrollEventRepo,
	videoRepo repos.VideoRepo,
	sessions SessionService,
) SummaryService {
	return &summaryService{
		db:          db,
		log:         log.With("service", "SummaryService"),
		summaryRepo: summaryRepo,
		eventRepo:   eventRepo,
		videoRepo:   videoRepo,
		sessions:    sessions,
	}
}

func (sv *summaryService) BuildSummary(ctx context.Context, sessionID uuid.UUID) (*types.SessionSummary, error) {
	events, eErr := sv.eventRepo.GetBySessionID(ctx, nil, sessionID)
	if eErr != nil {
		sv.log.Warn("Failed to load scroll events for summary", "error", eErr)
		return nil, fmt.Errorf("Failed to load scroll events for summary: %w", eErr)
	}

	videoIDs := make([]uuid.UUID, 0, len(events))
	seen := make(map[uuid.UUID]bool, len(events))
	for _, e := range events {
		if !seen[e.VideoID] {
			seen[e.VideoID] = true
			videoIDs = append(videoIDs, e.VideoID)
		}
	}
	videos := make(map[uuid.UUID]*types.Video, len(videoIDs))
	if len(videoIDs) > 0 {
		rows, vErr := sv.videoRepo.GetByIDs(ctx, nil, videoIDs)
		if vErr != nil {
			sv.log.Warn("Failed to load videos for summary", "error", vErr)
			return nil, fmt.Errorf("Failed to load videos for summary: %w", vErr)
		}
		for _, v := range rows {
			videos[v.ID] = v
		}
	}

	summary := scoring.BuildSummary(sessionID, events, videos)
	var saved *types.SessionSummary
	err := sv.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		up, upErr := sv.summaryRepo.Upsert(ctx, tx, summary)
		if upErr != nil {
			return fmt.Errorf("Failed to upsert session summary: %w", upErr)
		}
		saved = up
		return nil
	})
	if err != nil {
		return nil, err
	}
	sv.log.Info("Session summary built",
		"sessionID", sessionID,
		"events", len(events),
		"score", saved.OptimizerScore)
	return saved, nil
}

func (sv *summaryService) GetSummary(ctx context.Context, sessionID uuid.UUID) (*types.SessionSummary, error) {
	summary, gErr := sv.summaryRepo.GetBySessionID(ctx, nil, sessionID)
	if gErr != nil {
		if gErr == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("Summary not found")
		}
		sv.log.Warn("Failed to load session summary", "error", gErr)
		return nil, fmt.Errorf("Failed to load session summary: %w", gErr)
	}
	return summary, nil
}

func (sv *summaryService) RecordOptIn(ctx context.Context, sessionID uuid.UUID, role string, accepted bool) (*types.SessionSummary, error) {
	if !session.ValidRole(role) {
		return nil, fmt.Errorf("Unknown role %q", role)
	}

	var summary *types.SessionSummary
	err := sv.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if sErr := sv.summaryRepo.SetOptIn(ctx, tx, sessionID, role, accepted); sErr != nil {
			return fmt.Errorf("Failed to record opt-in: %w", sErr)
		}
		loaded, gErr := sv.summaryRepo.GetBySessionID(ctx, tx, sessionID)
		if gErr != nil {
			return fmt.Errorf("Failed to reload session summary: %w", gErr)
		}
		summary = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The reveal resolves only when both answers are in. A single decline
	// resolves immediately against the call.
	scroller := summary.ScrollerAcceptedCall
	optimizer := summary.OptimizerAcceptedCall
	switch {
	case scroller != nil && optimizer != nil && *scroller && *optimizer:
		if _, aErr := sv.sessions.Advance(ctx, sessionID, session.InputAcceptedCall); aErr != nil {
			sv.log.Warn("Failed to advance session after mutual opt-in", "sessionID", sessionID, "error", aErr)
		}
	case (scroller != nil && !*scroller) || (optimizer != nil && !*optimizer):
		if _, aErr := sv.sessions.Advance(ctx, sessionID, session.InputDeclinedCall); aErr != nil {
			sv.log.Warn("Failed to advance session after declined call", "sessionID", sessionID, "error", aErr)
		}
	}
	return summary, nil
}

func (sv *summaryService) RecordCallDuration(ctx context.Context, sessionID uuid.UUID, seconds int) error {
	if seconds < 0 {
		return fmt.Errorf("Call duration cannot be negative")
	}
	if sErr := sv.summaryRepo.SetCallDuration(ctx, nil, sessionID, seconds); sErr != nil {
		sv.log.Warn("Failed to record call duration", "error", sErr)
		return fmt.Errorf("Failed to record call duration: %w", sErr)
	}
	if _, aErr := sv.sessions.Advance(ctx, sessionID, session.InputCallEnded); aErr != nil {
		sv.log.Warn("Failed to complete session after call", "sessionID", sessionID, "error", aErr)
	}
	return nil
}
