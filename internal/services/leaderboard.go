package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/felixvaughn/themachine-backend/internal/logger"
	"github.com/felixvaughn/themachine-backend/internal/repos"
)

type LeaderboardService interface {
	TopOptimizers(ctx context.Context, limit int) ([]*repos.LeaderboardEntry, error)
}

type leaderboardService struct {
	db              *gorm.DB
	log             *logger.Logger
	leaderboardRepo repos.LeaderboardRepo
}

func NewLeaderboardService(db *gorm.DB, log *logger.Logger, leaderboardRepo repos.LeaderboardRepo) LeaderboardService {
	return &leaderboardService{
		db:              db,
		log:             log.With("service", "LeaderboardService"),
		leaderboardRepo: leaderboardRepo,
	}
}

func (ls *leaderboardService) TopOptimizers(ctx context.Context, limit int) ([]*repos.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	entries, lErr := ls.leaderboardRepo.Top(ctx, nil, limit)
	if lErr != nil {
		ls.log.Warn("Failed to load leaderboard", "error", lErr)
		return nil, fmt.Errorf("Failed to load leaderboard: %w", lErr)
	}
	return entries, nil
}
