package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/felixvaughn/themachine-backend/internal/logger"
	"github.com/felixvaughn/themachine-backend/internal/types"
)

type VideoRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, videos []*types.Video) ([]*types.Video, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Video, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Video, error)
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
}

type videoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoRepo(db *gorm.DB, baseLog *logger.Logger) VideoRepo {
	return &videoRepo{db: db, log: baseLog.With("repo", "VideoRepo")}
}

// Upsert keys on youtube_id so re-running the seeder is harmless. Catalog
// rows are otherwise immutable.
func (r *videoRepo) Upsert(ctx context.Context, tx *gorm.DB, videos []*types.Video) ([]*types.Video, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(videos) == 0 {
		return []*types.Video{}, nil
	}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "youtube_id"}},
			DoNothing: true,
		}).
		Create(&videos).Error; err != nil {
		return nil, err
	}
	return videos, nil
}

func (r *videoRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Video, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Video
	if err := transaction.WithContext(ctx).
		Order("added_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *videoRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Video, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Video
	if len(ids) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *videoRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Video{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
