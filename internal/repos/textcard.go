package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/felixvaughn/themachine-backend/internal/logger"
	"github.com/felixvaughn/themachine-backend/internal/types"
)

type TextCardRepo interface {
	Create(ctx context.Context, tx *gorm.DB, cards []*types.TextCard) ([]*types.TextCard, error)
	GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.TextCard, error)
}

type textCardRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTextCardRepo(db *gorm.DB, baseLog *logger.Logger) TextCardRepo {
	return &textCardRepo{db: db, log: baseLog.With("repo", "TextCardRepo")}
}

func (r *textCardRepo) Create(ctx context.Context, tx *gorm.DB, cards []*types.TextCard) ([]*types.TextCard, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(cards) == 0 {
		return []*types.TextCard{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

func (r *textCardRepo) GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.TextCard, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.TextCard
	if sessionID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("sent_at_ms ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
