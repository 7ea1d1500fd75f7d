package models

import (
	"time"

	"gorm.io/gorm"
)

// UserSettings is a local snapshot of the gamification preferences owned by
// the Profile Service. Populated via sync worker; the engine only ever reads
// it. A user without a row counts as opted in (the platform default).
type UserSettings struct {
	ID                  string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID      string    `gorm:"uniqueIndex;not null" json:"external_user_id"` // The profile service's UUID
	GamificationEnabled bool      `json:"gamification_enabled" gorm:"default:true"`
	CreatedAt           time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt           time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Soft delete (profile deactivation keeps history intact)
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
