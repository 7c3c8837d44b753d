package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/felixvaughn/themachine-backend/internal/logger"
	"github.com/felixvaughn/themachine-backend/internal/types"
)

type FieldReportRepo interface {
	Create(ctx context.Context, tx *gorm.DB, reports []*types.FieldReport) ([]*types.FieldReport, error)
	GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.FieldReport, error)
	ListShared(ctx context.Context, tx *gorm.DB, limit int) ([]*types.FieldReport, error)
}

type fieldReportRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFieldReportRepo(db *gorm.DB, baseLog *logger.Logger) FieldReportRepo {
	return &fieldReportRepo{db: db, log: baseLog.With("repo", "FieldReportRepo")}
}

func (r *fieldReportRepo) Create(ctx context.Context, tx *gorm.DB, reports []*types.FieldReport) ([]*types.FieldReport, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(reports) == 0 {
		return []*types.FieldReport{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

func (r *fieldReportRepo) GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.FieldReport, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.FieldReport
	if sessionID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *fieldReportRepo) ListShared(ctx context.Context, tx *gorm.DB, limit int) ([]*types.FieldReport, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var results []*types.FieldReport
	if err := transaction.WithContext(ctx).
		Where("share_consent = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
