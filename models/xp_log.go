package models

import (
	"time"
)

// XP grant sources, recorded on every ledger entry.
const (
	XPSourceAchievement = "ACHIEVEMENT"
	XPSourceHabit       = "HABIT_COMPLETE"
	XPSourceTask        = "TASK_COMPLETE"
	XPSourceLogin       = "LOGIN"
	XPSourceStreakBonus = "STREAK_BONUS"
	XPSourceAdminGrant  = "ADMIN_GRANT"
)

// XPLogEntry is the append-only XP audit trail. Rows are never mutated or
// deleted; the running total lives on UserProgress.
type XPLogEntry struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string    `gorm:"index;not null" json:"external_user_id"`
	Amount         int64     `gorm:"not null" json:"amount"`
	Source         string    `gorm:"index;not null" json:"source"`
	SourceID       *string   `gorm:"type:uuid" json:"source_id,omitempty"` // e.g., the unlocked achievement's ID
	Description    string    `json:"description"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}
