package services

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/felixvaughn/themachine-backend/internal/logger"
	"github.com/felixvaughn/themachine-backend/internal/repos"
	"github.com/felixvaughn/themachine-backend/internal/scoring"
	"github.com/felixvaughn/themachine-backend/internal/types"
)

type VideoService interface {
	ListVideos(ctx context.Context) ([]*types.Video, error)
	DefaultQueue(ctx context.Context) ([]*types.Video, error)
	VideosByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*types.Video, error)
	SeedCatalog(ctx context.Context, videos []*types.Video) (int, error)
}

type videoService struct {
	db        *gorm.DB
	log       *logger.Logger
	videoRepo repos.VideoRepo

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewVideoService(db *gorm.DB, log *logger.Logger, videoRepo repos.VideoRepo) VideoService {
	return &videoService{
		db:        db,
		log:       log.With("service", "VideoService"),
		videoRepo: videoRepo,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (vs *videoService) ListVideos(ctx context.Context) ([]*types.Video, error) {
	videos, vErr := vs.videoRepo.GetAll(ctx, nil)
	if vErr != nil {
		vs.log.Warn("Failed to load video catalog", "error", vErr)
		return nil, fmt.Errorf("Failed to load video catalog: %w", vErr)
	}
	return videos, nil
}

// DefaultQueue builds the opening queue the Scroller sees before the
// Optimizer starts curating: the fixed dimension rotation filled from the
// full catalog.
func (vs *videoService) DefaultQueue(ctx context.Context) ([]*types.Video, error) {
	videos, vErr := vs.videoRepo.GetAll(ctx, nil)
	if vErr != nil {
		vs.log.Warn("Failed to load video catalog", "error", vErr)
		return nil, fmt.Errorf("Failed to load video catalog: %w", vErr)
	}
	vs.rngMu.Lock()
	queue := scoring.BuildDefaultQueue(videos, vs.rng)
	vs.rngMu.Unlock()
	if queue == nil {
		return nil, fmt.Errorf("Video catalog is empty")
	}
	return queue, nil
}

func (vs *videoService) VideosByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*types.Video, error) {
	videos, vErr := vs.videoRepo.GetByIDs(ctx, nil, ids)
	if vErr != nil {
		return nil, fmt.Errorf("Failed to load videos: %w", vErr)
	}
	byID := make(map[uuid.UUID]*types.Video, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}
	return byID, nil
}

// SeedCatalog upserts scored videos, keyed by youtube id. Returns how many
// rows were new.
func (vs *videoService) SeedCatalog(ctx context.Context, videos []*types.Video) (int, error) {
	before, cErr := vs.videoRepo.Count(ctx, nil)
	if cErr != nil {
		return 0, fmt.Errorf("Failed to count video catalog: %w", cErr)
	}
	err := vs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, v := range videos {
			if v.ID == uuid.Nil {
				v.ID = uuid.New()
			}
			if v.AddedAt.IsZero() {
				v.AddedAt = time.Now()
			}
		}
		if _, upErr := vs.videoRepo.Upsert(ctx, tx, videos); upErr != nil {
			return fmt.Errorf("Failed to upsert videos: %w", upErr)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	after, cErr := vs.videoRepo.Count(ctx, nil)
	if cErr != nil {
		return 0, fmt.Errorf("Failed to count video catalog: %w", cErr)
	}
	added := int(after - before)
	vs.log.Info("Video catalog seeded", "submitted", len(videos), "added", added, "total", after)
	return added, nil
}
