package services

import (
	"errors"
	"fmt"
	"log"

	"life-progress-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TitleService struct {
	DB *gorm.DB
}

func NewTitleService(db *gorm.DB) *TitleService {
	return &TitleService{DB: db}
}

// UnlockedTitle is the summary returned for each newly unlocked title.
type UnlockedTitle struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Name   string `json:"name"`
	Rarity string `json:"rarity"`
}

// CheckTitleUnlocks unlocks every level-gated title the user's current level
// reaches. Newly unlocked titles are never auto-equipped; the unique
// (user, title) index makes re-runs and concurrent callers idempotent.
func (s *TitleService) CheckTitleUnlocks(externalUserID string) ([]UnlockedTitle, error) {
	var settings models.UserSettings
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&settings).Error
	if err == nil && !settings.GamificationEnabled {
		return nil, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	currentLevel := 1
	var prog models.UserProgress
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&prog).Error; err == nil {
		currentLevel = prog.Level
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Achievement-gated titles stay out of the automatic path.
	var candidates []models.Title
	if err := s.DB.Where("required_level IS NOT NULL AND required_level <= ? AND required_achievement_id IS NULL", currentLevel).
		Order("required_level ASC").
		Find(&candidates).Error; err != nil {
		return nil, err
	}

	var unlocked []UnlockedTitle
	for _, title := range candidates {
		fresh, err := s.insertUnlock(externalUserID, title.ID, false)
		if err != nil {
			return unlocked, err
		}
		if !fresh {
			continue
		}
		log.Printf("🎖️ Title unlocked: %s → %s", title.Code, externalUserID)
		unlocked = append(unlocked, UnlockedTitle{
			ID:     title.ID,
			Code:   title.Code,
			Name:   title.Name,
			Rarity: title.Rarity,
		})
	}
	return unlocked, nil
}

// GrantFirstTitle gives a fresh account the starter title, equipped. This is
// the only automatic path that inserts an active title row. Idempotent: a
// second bootstrap finds the row and does nothing.
func (s *TitleService) GrantFirstTitle(externalUserID string) error {
	var starter models.Title
	err := s.DB.Where("code = ?", models.StarterTitleCode).First(&starter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Missing starter title is a seeding defect, not a runtime fault.
		log.Printf("⚠️ Starter title %q not seeded — skipping bootstrap grant for %s", models.StarterTitleCode, externalUserID)
		return nil
	}
	if err != nil {
		return err
	}

	fresh, err := s.insertUnlock(externalUserID, starter.ID, true)
	if err != nil {
		return err
	}
	if fresh {
		log.Printf("🎖️ Starter title equipped: %s → %s", starter.Code, externalUserID)
	}
	return nil
}

// ClaimForAchievement is the explicit path for achievement-gated titles: it
// unlocks every title gated on the given achievement, provided the user has
// actually unlocked that achievement.
func (s *TitleService) ClaimForAchievement(externalUserID, achievementID string) ([]UnlockedTitle, error) {
	var count int64
	if err := s.DB.Model(&models.UserAchievement{}).
		Where("external_user_id = ? AND achievement_id = ? AND unlocked_at IS NOT NULL", externalUserID, achievementID).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("achievement %s is not unlocked for %s", achievementID, externalUserID)
	}

	var candidates []models.Title
	if err := s.DB.Where("required_achievement_id = ?", achievementID).Find(&candidates).Error; err != nil {
		return nil, err
	}

	var unlocked []UnlockedTitle
	for _, title := range candidates {
		fresh, err := s.insertUnlock(externalUserID, title.ID, false)
		if err != nil {
			return unlocked, err
		}
		if !fresh {
			continue
		}
		log.Printf("🎖️ Title claimed: %s → %s", title.Code, externalUserID)
		unlocked = append(unlocked, UnlockedTitle{
			ID:     title.ID,
			Code:   title.Code,
			Name:   title.Name,
			Rarity: title.Rarity,
		})
	}
	return unlocked, nil
}

// EquipTitle makes the given unlocked title the user's single active one.
// The one-active-title invariant is enforced here, application-side, inside
// one transaction.
func (s *TitleService) EquipTitle(externalUserID, titleID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var unlock models.UserTitle
		if err := tx.Where("external_user_id = ? AND title_id = ?", externalUserID, titleID).
			First(&unlock).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("title %s is not unlocked for %s", titleID, externalUserID)
			}
			return err
		}

		if err := tx.Model(&models.UserTitle{}).
			Where("external_user_id = ? AND is_active = ?", externalUserID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.UserTitle{}).
			Where("id = ?", unlock.ID).
			Update("is_active", true).Error
	})
}

// insertUnlock creates the (user, title) unlock row if absent. A duplicate-
// key loss means some other caller unlocked it first; both report not-fresh.
func (s *TitleService) insertUnlock(externalUserID, titleID string, active bool) (bool, error) {
	ut := models.UserTitle{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		TitleID:        titleID,
		IsActive:       active,
	}
	if err := s.DB.Create(&ut).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
