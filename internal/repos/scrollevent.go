package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/felixvaughn/themachine-backend/internal/logger"
	"github.com/felixvaughn/themachine-backend/internal/types"
)

type ScrollEventRepo interface {
	Create(ctx context.Context, tx *gorm.DB, events []*types.ScrollEvent) ([]*types.ScrollEvent, error)
	GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.ScrollEvent, error)
}

type scrollEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScrollEventRepo(db *gorm.DB, baseLog *logger.Logger) ScrollEventRepo {
	return &scrollEventRepo{db: db, log: baseLog.With("repo", "ScrollEventRepo")}
}

func (r *scrollEventRepo) Create(ctx context.Context, tx *gorm.DB, events []*types.ScrollEvent) ([]*types.ScrollEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(events) == 0 {
		return []*types.ScrollEvent{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *scrollEventRepo) GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.ScrollEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ScrollEvent
	if sessionID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp_ms ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
