package services

import (
	"errors"

	"life-progress-system/models"

	"gorm.io/gorm"
)

// ProgressSummary is the read model behind the profile header: current
// level, XP, and unlock counts.
type ProgressSummary struct {
	TotalXP              int64  `json:"total_xp"`
	Level                int    `json:"level"`
	LevelName            string `json:"level_name"`
	LevelIconURL         string `json:"level_icon_url"`
	AchievementsUnlocked int64  `json:"achievements_unlocked"`
	TitlesUnlocked       int64  `json:"titles_unlocked"`
}

// GetSummary composes the XP account, its level row, and the unlock counts.
// Pure read, no opt-in gate: a user without an account gets zero-value
// defaults (level 1, nothing unlocked).
func (s *GamificationService) GetSummary(externalUserID string) (*ProgressSummary, error) {
	summary := &ProgressSummary{Level: 1}

	var prog models.UserProgress
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&prog).Error
	if err == nil {
		summary.TotalXP = prog.TotalXP
		summary.Level = prog.Level
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var def models.LevelDefinition
	if err := s.DB.Where("level = ?", summary.Level).First(&def).Error; err == nil {
		summary.LevelName = def.Name
		summary.LevelIconURL = def.IconURL
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := s.DB.Model(&models.UserAchievement{}).
		Where("external_user_id = ? AND unlocked_at IS NOT NULL", externalUserID).
		Count(&summary.AchievementsUnlocked).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&models.UserTitle{}).
		Where("external_user_id = ?", externalUserID).
		Count(&summary.TitlesUnlocked).Error; err != nil {
		return nil, err
	}

	return summary, nil
}
