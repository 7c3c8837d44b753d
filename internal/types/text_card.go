package types

import (
	"time"

	"github.com/google/uuid"
)

// TextCard is an Optimizer-authored message shown to the Scroller
// mid-session. Append-only.
type TextCard struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID    `gorm:"type:uuid;not null;index;column:session_id" json:"session_id"`
	Session   *SessionSlot `gorm:"constraint:OnDelete:CASCADE;foreignKey:SessionID;references:ID" json:"-"`
	Content   string       `gorm:"not null;column:content" json:"content"`
	SentAtMS  int64        `gorm:"not null;column:sent_at_ms" json:"sent_at_ms"`
	SentAt    time.Time    `gorm:"not null;column:sent_at" json:"sent_at"`
}

func (TextCard) TableName() string {
	return "text_card"
}
