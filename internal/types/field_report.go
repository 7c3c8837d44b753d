package types

import (
	"time"

	"github.com/google/uuid"
)

// FieldReport is a free-text post-session reflection. Append-only,
// terminal artifact.
type FieldReport struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID    uuid.UUID    `gorm:"type:uuid;not null;index;column:session_id" json:"session_id"`
	Session      *SessionSlot `gorm:"constraint:OnDelete:CASCADE;foreignKey:SessionID;references:ID" json:"-"`
	UserID       uuid.UUID    `gorm:"type:uuid;not null;index;column:user_id" json:"user_id"`
	User         *User        `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	Role         string       `gorm:"not null;column:role" json:"role"` // optimizer|scroller
	Content      string       `gorm:"not null;column:content" json:"content"`
	ShareConsent bool         `gorm:"not null;column:share_consent" json:"share_consent"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
}

func (FieldReport) TableName() string {
	return "field_report"
}
