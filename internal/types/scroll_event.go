package types

import (
	"github.com/google/uuid"
)

// ScrollEvent is one video shown to the Scroller. Append-only; the summary
// builder reads these rows, never the broadcast history.
type ScrollEvent struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID      uuid.UUID  `gorm:"type:uuid;not null;index;column:session_id" json:"session_id"`
	Session        *SessionSlot `gorm:"constraint:OnDelete:CASCADE;foreignKey:SessionID;references:ID" json:"-"`
	VideoID        uuid.UUID  `gorm:"type:uuid;not null;index;column:video_id" json:"video_id"`
	Video          *Video     `gorm:"foreignKey:VideoID;references:ID" json:"-"`
	DwellMS        int64      `gorm:"not null;column:dwell_ms" json:"dwell_ms"`
	ScrollVelocity *float64   `gorm:"column:scroll_velocity" json:"scroll_velocity,omitempty"`
	QueuedBy       string     `gorm:"not null;column:queued_by" json:"queued_by"` // system|optimizer
	TimestampMS    int64      `gorm:"not null;index;column:timestamp_ms" json:"timestamp_ms"`
	InfoGain       *float64   `gorm:"column:info_gain" json:"info_gain,omitempty"`
	CumulativeInfo *float64   `gorm:"column:cumulative_info" json:"cumulative_info,omitempty"`
}

func (ScrollEvent) TableName() string {
	return "scroll_event"
}
