package models

import (
	"time"
)

// StarterTitleCode is the well-known title granted (and equipped) when a user
// account is bootstrapped. It carries neither a level nor an achievement
// requirement, so the automatic unlock path never touches it.
const StarterTitleCode = "NEWCOMER"

// Title: static catalog row for an unlockable display title. Exactly one of
// RequiredLevel / RequiredAchievementID is set per title: level-gated titles
// unlock automatically on level-up, achievement-gated titles only through the
// explicit claim path.
type Title struct {
	ID                    string    `gorm:"primaryKey;type:uuid" json:"id"`
	Code                  string    `gorm:"uniqueIndex;not null" json:"code"` // e.g., "RISING_STAR"
	Name                  string    `gorm:"not null" json:"name"`
	Rarity                string    `gorm:"type:varchar(16);default:'common'" json:"rarity"`
	RequiredLevel         *int      `json:"required_level,omitempty"`
	RequiredAchievementID *string   `gorm:"type:uuid" json:"required_achievement_id,omitempty"`
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// UserTitle: awarded instance. At most one row per user has IsActive=true
// (the equipped title); the engine only inserts inactive rows except for the
// starter-title bootstrap, and the equip toggle maintains the invariant
// application-side.
type UserTitle struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string    `gorm:"uniqueIndex:idx_user_title;not null" json:"external_user_id"`
	TitleID        string    `gorm:"uniqueIndex:idx_user_title;not null" json:"title_id"`
	UnlockedAt     time.Time `gorm:"autoCreateTime" json:"unlocked_at"`
	IsActive       bool      `gorm:"default:false" json:"is_active"`
}
