package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SessionSummary is the scored outcome of one session, rebuilt
// deterministically from persisted scroll events. Upserts key on
// session_id so recomputation is idempotent. Opt-in flags and call
// duration are patched in after the reveal.
type SessionSummary struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID    `gorm:"type:uuid;uniqueIndex;not null;column:session_id" json:"session_id"`
	Session   *SessionSlot `gorm:"constraint:OnDelete:CASCADE;foreignKey:SessionID;references:ID" json:"-"`

	DurationSeconds      int      `gorm:"not null;column:duration_seconds" json:"duration_seconds"`
	TotalVideosShown     int      `gorm:"not null;column:total_videos_shown" json:"total_videos_shown"`
	OptimizerVideosShown int      `gorm:"not null;column:optimizer_videos_shown" json:"optimizer_videos_shown"`
	SystemVideosShown    int      `gorm:"not null;column:system_videos_shown" json:"system_videos_shown"`
	AvgDwellOptimizerMS  *float64 `gorm:"column:avg_dwell_optimizer_ms" json:"avg_dwell_optimizer_ms,omitempty"`
	AvgDwellSystemMS     *float64 `gorm:"column:avg_dwell_system_ms" json:"avg_dwell_system_ms,omitempty"`
	EngagementMultiplier float64  `gorm:"not null;column:engagement_multiplier" json:"engagement_multiplier"`
	TotalInfoGain        float64  `gorm:"not null;column:total_info_gain" json:"total_info_gain"`
	DimensionsExplored   int      `gorm:"not null;column:dimensions_explored" json:"dimensions_explored"`
	ExplorationEntropy   float64  `gorm:"not null;column:exploration_entropy" json:"exploration_entropy"`
	OptimizerScore       int      `gorm:"not null;column:optimizer_score" json:"optimizer_score"`

	FinalFeatureVector datatypes.JSON `gorm:"type:jsonb;column:final_feature_vector" json:"final_feature_vector"`
	FinalUmapCoords    datatypes.JSON `gorm:"type:jsonb;column:final_umap_coords" json:"final_umap_coords"`

	ScrollerAcceptedCall  *bool `gorm:"column:scroller_accepted_call" json:"scroller_accepted_call,omitempty"`
	OptimizerAcceptedCall *bool `gorm:"column:optimizer_accepted_call" json:"optimizer_accepted_call,omitempty"`
	CallDurationSeconds   *int  `gorm:"column:call_duration_seconds" json:"call_duration_seconds,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (SessionSummary) TableName() string {
	return "session_summary"
}
