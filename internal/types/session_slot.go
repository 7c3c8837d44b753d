package types

import (
	"time"

	"github.com/google/uuid"
)

// SessionSlot is one session's role assignment. Role ids stay nil until a
// participant claims them; status walks the lifecycle machine in
// internal/session.
type SessionSlot struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	StartsAt    time.Time  `gorm:"not null;column:starts_at" json:"starts_at"`
	OptimizerID *uuid.UUID `gorm:"type:uuid;index;column:optimizer_id" json:"optimizer_id,omitempty"`
	Optimizer   *User      `gorm:"foreignKey:OptimizerID;references:ID" json:"-"`
	ScrollerID  *uuid.UUID `gorm:"type:uuid;index;column:scroller_id" json:"scroller_id,omitempty"`
	Scroller    *User      `gorm:"foreignKey:ScrollerID;references:ID" json:"-"`
	Status      string     `gorm:"not null;index;column:status" json:"status"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (SessionSlot) TableName() string {
	return "session_slot"
}
