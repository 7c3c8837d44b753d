package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/felixvaughn/themachine-backend/internal/logger"
	"github.com/felixvaughn/themachine-backend/internal/types"
)

type SessionSummaryRepo interface {
	// Upsert keys on session_id so rebuilding a summary is idempotent.
	Upsert(ctx context.Context, tx *gorm.DB, summary *types.SessionSummary) (*types.SessionSummary, error)
	GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*types.SessionSummary, error)
	SetOptIn(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, role string, accepted bool) error
	SetCallDuration(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, seconds int) error
}

type sessionSummaryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionSummaryRepo(db *gorm.DB, baseLog *logger.Logger) SessionSummaryRepo {
	return &sessionSummaryRepo{db: db, log: baseLog.With("repo", "SessionSummaryRepo")}
}

func (r *sessionSummaryRepo) Upsert(ctx context.Context, tx *gorm.DB, summary *types.SessionSummary) (*types.SessionSummary, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"duration_seconds",
				"total_videos_shown",
				"optimizer_videos_shown",
				"system_videos_shown",
				"avg_dwell_optimizer_ms",
				"avg_dwell_system_ms",
				"engagement_multiplier",
				"total_info_gain",
				"dimensions_explored",
				"exploration_entropy",
				"optimizer_score",
				"final_feature_vector",
				"final_umap_coords",
				"updated_at",
			}),
		}).
		Create(summary).Error
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (r *sessionSummaryRepo) GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*types.SessionSummary, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var summary types.SessionSummary
	err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (r *sessionSummaryRepo) SetOptIn(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, role string, accepted bool) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	column := "scroller_accepted_call"
	if role == "optimizer" {
		column = "optimizer_accepted_call"
	}
	return transaction.WithContext(ctx).
		Model(&types.SessionSummary{}).
		Where("session_id = ?", sessionID).
		Update(column, accepted).Error
}

func (r *sessionSummaryRepo) SetCallDuration(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, seconds int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.SessionSummary{}).
		Where("session_id = ?", sessionID).
		Update("call_duration_seconds", seconds).Error
}
