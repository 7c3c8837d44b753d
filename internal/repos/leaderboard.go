package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/felixvaughn/themachine-backend/internal/logger"
)

// LeaderboardEntry is a read model over session summaries: one row per
// optimizer, scored by the sessions they ran. The original schema exposed
// this as a database view.
type LeaderboardEntry struct {
	UserID              uuid.UUID `json:"user_id"`
	DisplayName         string    `json:"display_name"`
	SessionsPlayed      int       `json:"sessions_played"`
	BestScore           int       `json:"best_score"`
	AvgScore            float64   `json:"avg_score"`
	AvgRetentionSeconds float64   `json:"avg_retention_seconds"`
	AvgInfoGain         float64   `json:"avg_info_gain"`
}

type LeaderboardRepo interface {
	Top(ctx context.Context, tx *gorm.DB, limit int) ([]*LeaderboardEntry, error)
}

type leaderboardRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLeaderboardRepo(db *gorm.DB, baseLog *logger.Logger) LeaderboardRepo {
	return &leaderboardRepo{db: db, log: baseLog.With("repo", "LeaderboardRepo")}
}

func (r *leaderboardRepo) Top(ctx context.Context, tx *gorm.DB, limit int) ([]*LeaderboardEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 20
	}
	var results []*LeaderboardEntry
	err := transaction.WithContext(ctx).Raw(`
		SELECT
			u.id AS user_id,
			u.display_name AS display_name,
			COUNT(ss.id) AS sessions_played,
			MAX(ss.optimizer_score) AS best_score,
			AVG(ss.optimizer_score) AS avg_score,
			AVG(ss.duration_seconds) AS avg_retention_seconds,
			AVG(ss.total_info_gain) AS avg_info_gain
		FROM session_summary ss
		JOIN session_slot sl ON sl.id = ss.session_id
		JOIN "user" u ON u.id = sl.optimizer_id
		GROUP BY u.id, u.display_name
		ORDER BY best_score DESC
		LIMIT ?`, limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
