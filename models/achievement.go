package models

import (
	"time"
)

// Condition types reported by the platform modules (habits, tasks, auth,
// finance, health, study). LEVEL_REACH and ACHIEVEMENT_COUNT are produced by
// the engine itself during cascades.
const (
	ConditionHabitCompleteCount = "HABIT_COMPLETE_COUNT"
	ConditionTaskCompleteCount  = "TASK_COMPLETE_COUNT"
	ConditionLoginCount         = "LOGIN_COUNT"
	ConditionStreakDays         = "STREAK_DAYS"
	ConditionFinanceEntryCount  = "FINANCE_ENTRY_COUNT"
	ConditionWorkoutCount       = "WORKOUT_COUNT"
	ConditionStudyMinutes       = "STUDY_MINUTES"
	ConditionLevelReach         = "LEVEL_REACH"
	ConditionAchievementCount   = "ACHIEVEMENT_COUNT"
)

// Achievement: static catalog row (seeded at boot, immutable afterwards).
// An achievement unlocks once the reported value for its condition type
// reaches ConditionValue; several tiers of the same type can unlock in one
// report.
type Achievement struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	Code           string    `gorm:"uniqueIndex;not null" json:"code"` // e.g., "TEN_HABITS"
	Name           string    `gorm:"not null" json:"name"`
	Description    string    `json:"description"`
	ConditionType  string    `gorm:"index;not null" json:"condition_type"`
	ConditionValue int64     `gorm:"not null" json:"condition_value"`
	XPReward       int64     `gorm:"column:xp_reward;not null;default:0" json:"xp_reward"`
	Rarity         string    `gorm:"type:varchar(16);default:'common'" json:"rarity"` // common, rare, epic, legendary
	IconURL        string    `gorm:"type:text" json:"icon_url"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// UserAchievement: per-user state against the catalog. A row with a NULL
// UnlockedAt only tracks progress; once UnlockedAt is set it is never
// cleared. The (external_user_id, achievement_id) unique index is the
// idempotence guard for concurrent unlock attempts.
type UserAchievement struct {
	ID             string     `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string     `gorm:"uniqueIndex:idx_user_achievement;not null" json:"external_user_id"`
	AchievementID  string     `gorm:"uniqueIndex:idx_user_achievement;not null" json:"achievement_id"`
	UnlockedAt     *time.Time `json:"unlocked_at,omitempty"`
	Progress       int64      `gorm:"default:0" json:"progress"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
