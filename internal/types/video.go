package types

import (
	"time"

	"github.com/google/uuid"
)

// Video is a catalog entry. Rows are immutable once seeded; the five
// dim_* scores are normalized to [0,1].
type Video struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	YoutubeID       string    `gorm:"uniqueIndex;not null;column:youtube_id" json:"youtube_id"`
	Title           *string   `gorm:"column:title" json:"title,omitempty"`
	DurationSeconds *int      `gorm:"column:duration_seconds" json:"duration_seconds,omitempty"`

	DimCommunal  float64 `gorm:"not null;column:dim_communal" json:"dim_communal"`
	DimAesthetic float64 `gorm:"not null;column:dim_aesthetic" json:"dim_aesthetic"`
	DimDark      float64 `gorm:"not null;column:dim_dark" json:"dim_dark"`
	DimThrilling float64 `gorm:"not null;column:dim_thrilling" json:"dim_thrilling"`
	DimCerebral  float64 `gorm:"not null;column:dim_cerebral" json:"dim_cerebral"`

	AttrPace          *string `gorm:"column:attr_pace" json:"attr_pace,omitempty"`                     // slow|medium|fast
	AttrValence       *string `gorm:"column:attr_valence" json:"attr_valence,omitempty"`               // warm|neutral|dark
	AttrComplexity    *string `gorm:"column:attr_complexity" json:"attr_complexity,omitempty"`         // simple|moderate|complex
	AttrSocialDensity *string `gorm:"column:attr_social_density" json:"attr_social_density,omitempty"` // solo|small_group|crowd
	AttrNovelty       *string `gorm:"column:attr_novelty" json:"attr_novelty,omitempty"`               // familiar|moderate|strange
	AttrProduction    *string `gorm:"column:attr_production" json:"attr_production,omitempty"`         // raw|moderate|polished

	DiagOpenness          float64 `gorm:"column:diag_openness" json:"diag_openness"`
	DiagConscientiousness float64 `gorm:"column:diag_conscientiousness" json:"diag_conscientiousness"`
	DiagExtraversion      float64 `gorm:"column:diag_extraversion" json:"diag_extraversion"`
	DiagAgreeableness     float64 `gorm:"column:diag_agreeableness" json:"diag_agreeableness"`
	DiagNeuroticism       float64 `gorm:"column:diag_neuroticism" json:"diag_neuroticism"`

	AddedAt time.Time `gorm:"not null;index;column:added_at" json:"added_at"`
}

func (Video) TableName() string {
	return "video"
}
