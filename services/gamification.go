package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"life-progress-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// xpRetryLimit bounds the compare-and-swap loop in AddXP. Contention is
// per-user (two devices reporting at once), so a handful of retries settles
// every realistic race.
const xpRetryLimit = 5

type GamificationService struct {
	DB *gorm.DB
}

func NewGamificationService(db *gorm.DB) *GamificationService {
	return &GamificationService{DB: db}
}

// UnlockedAchievement is the reward summary returned for each achievement a
// report unlocked.
type UnlockedAchievement struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Rarity      string `json:"rarity"`
	IconURL     string `json:"icon_url"`
	XPReward    int64  `json:"xp_reward"`
}

// XPGrantResult summarizes one AddXP call.
type XPGrantResult struct {
	XPAdded   int64                   `json:"xp_added"`
	TotalXP   int64                   `json:"total_xp"`
	Level     int                     `json:"level"`
	LeveledUp bool                    `json:"leveled_up"`
	NewLevel  *models.LevelDefinition `json:"new_level,omitempty"`
}

// gamificationEnabled reads the opt-in mirror. Missing row = opted in.
func (s *GamificationService) gamificationEnabled(externalUserID string) (bool, error) {
	var settings models.UserSettings
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return settings.GamificationEnabled, nil
}

// CheckAchievements evaluates every achievement of the given condition type
// whose threshold the reported cumulative value reaches, unlocks the ones the
// user does not hold yet, and grants each unlock's XP reward. After a
// non-meta pass it re-evaluates ACHIEVEMENT_COUNT achievements against the
// user's new unlock total ("unlock N achievements" tiers).
//
// Calling it again with the same or a higher value is a no-op for already
// unlocked achievements: the unlock row, not the XP log, is the idempotence
// guard.
func (s *GamificationService) CheckAchievements(externalUserID, conditionType string, currentValue int64) ([]UnlockedAchievement, error) {
	enabled, err := s.gamificationEnabled(externalUserID)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, nil
	}
	return s.checkAchievements(externalUserID, conditionType, currentValue, false)
}

// metaPass marks the ACHIEVEMENT_COUNT re-evaluation so it cannot recurse
// into itself; that explicit flag is the whole termination argument.
func (s *GamificationService) checkAchievements(externalUserID, conditionType string, currentValue int64, metaPass bool) ([]UnlockedAchievement, error) {
	var qualifying []models.Achievement
	if err := s.DB.Where("condition_type = ? AND condition_value <= ?", conditionType, currentValue).
		Order("condition_value ASC").
		Find(&qualifying).Error; err != nil {
		return nil, err
	}

	// Track progress on tiers of this type not reached yet (fire-and-forget).
	s.trackProgress(externalUserID, conditionType, currentValue)

	var unlocked []UnlockedAchievement
	for _, ach := range qualifying {
		fresh, err := s.unlockAchievement(externalUserID, ach.ID, currentValue)
		if err != nil {
			return unlocked, err
		}
		if !fresh {
			continue // already unlocked (possibly by a concurrent caller)
		}

		log.Printf("🏆 Achievement unlocked: %s → %s (+%d XP)", ach.Code, externalUserID, ach.XPReward)

		achID := ach.ID
		if _, err := s.AddXP(externalUserID, ach.XPReward, models.XPSourceAchievement, &achID, "Achievement: "+ach.Name); err != nil {
			return unlocked, err
		}

		unlocked = append(unlocked, UnlockedAchievement{
			ID:          ach.ID,
			Code:        ach.Code,
			Name:        ach.Name,
			Description: ach.Description,
			Rarity:      ach.Rarity,
			IconURL:     ach.IconURL,
			XPReward:    ach.XPReward,
		})
	}

	if !metaPass && conditionType != models.ConditionAchievementCount {
		var totalUnlocked int64
		if err := s.DB.Model(&models.UserAchievement{}).
			Where("external_user_id = ? AND unlocked_at IS NOT NULL", externalUserID).
			Count(&totalUnlocked).Error; err != nil {
			return unlocked, err
		}
		if totalUnlocked > 0 {
			meta, err := s.checkAchievements(externalUserID, models.ConditionAchievementCount, totalUnlocked, true)
			if err != nil {
				return unlocked, err
			}
			unlocked = append(unlocked, meta...)
		}
	}

	return unlocked, nil
}

// unlockAchievement atomically claims the (user, achievement) pair. Returns
// true only for the caller that actually flipped the row to unlocked; a
// duplicate-key loss or an already-set unlocked_at both report false, so the
// XP reward can never be granted twice.
func (s *GamificationService) unlockAchievement(externalUserID, achievementID string, currentValue int64) (bool, error) {
	now := time.Now()
	ua := models.UserAchievement{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		AchievementID:  achievementID,
		UnlockedAt:     &now,
		Progress:       currentValue,
	}
	err := s.DB.Create(&ua).Error
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, err
	}

	// A row exists (in-progress tracking or a finished unlock). The guarded
	// UPDATE is a single statement, so only one racer can claim it.
	res := s.DB.Model(&models.UserAchievement{}).
		Where("external_user_id = ? AND achievement_id = ? AND unlocked_at IS NULL", externalUserID, achievementID).
		Updates(map[string]interface{}{"unlocked_at": now, "progress": currentValue})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// trackProgress records the latest reported value against tiers of the same
// condition type the user has not reached yet. Best effort: a lost progress
// write never blocks an unlock, the next report carries the cumulative value
// again anyway.
func (s *GamificationService) trackProgress(externalUserID, conditionType string, currentValue int64) {
	var pending []models.Achievement
	if err := s.DB.Where("condition_type = ? AND condition_value > ?", conditionType, currentValue).
		Find(&pending).Error; err != nil {
		log.Printf("⚠️ Progress lookup failed for %s/%s: %v", externalUserID, conditionType, err)
		return
	}

	for _, ach := range pending {
		res := s.DB.Model(&models.UserAchievement{}).
			Where("external_user_id = ? AND achievement_id = ? AND unlocked_at IS NULL AND progress < ?",
				externalUserID, ach.ID, currentValue).
			Update("progress", currentValue)
		if res.Error != nil {
			log.Printf("⚠️ Progress update failed for %s/%s: %v", externalUserID, ach.Code, res.Error)
			continue
		}
		if res.RowsAffected > 0 {
			continue
		}

		ua := models.UserAchievement{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			AchievementID:  ach.ID,
			Progress:       currentValue,
		}
		if err := s.DB.Create(&ua).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			log.Printf("⚠️ Progress insert failed for %s/%s: %v", externalUserID, ach.Code, err)
		}
	}
}

// AddXP credits XP to the user's account, re-resolves the level from the
// level table, and appends the ledger entry — all as one atomic unit per
// user. On level-up it re-enters achievement evaluation (LEVEL_REACH) and
// the title engine; those cascades are derived consequences and never roll
// back the grant itself.
func (s *GamificationService) AddXP(externalUserID string, amount int64, source string, sourceID *string, description string) (*XPGrantResult, error) {
	if amount < 0 {
		return nil, fmt.Errorf("negative XP amount %d for %s — adjustments are not grants", amount, externalUserID)
	}

	enabled, err := s.gamificationEnabled(externalUserID)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return &XPGrantResult{XPAdded: 0, LeveledUp: false}, nil
	}

	for attempt := 0; attempt < xpRetryLimit; attempt++ {
		prog, err := s.ensureProgressRecord(externalUserID)
		if err != nil {
			return nil, err
		}

		newTotal := prog.TotalXP + amount
		newLevel := prog.Level
		var newDef *models.LevelDefinition

		var def models.LevelDefinition
		lookupErr := s.DB.Where("min_xp <= ? AND max_xp >= ?", newTotal, newTotal).First(&def).Error
		switch {
		case lookupErr == nil:
			newLevel = def.Level
			newDef = &def
		case errors.Is(lookupErr, gorm.ErrRecordNotFound):
			// Gap in the level table is a content defect; record the XP and
			// keep the current level rather than blocking the grant.
			log.Printf("⚠️ No level range contains %d XP — level table gap, keeping level %d for %s",
				newTotal, prog.Level, externalUserID)
		default:
			return nil, lookupErr
		}

		leveledUp := newLevel > prog.Level

		applied := false
		err = s.DB.Transaction(func(tx *gorm.DB) error {
			columns := map[string]interface{}{"total_xp": newTotal, "level": newLevel}
			if leveledUp {
				columns["last_level_up_at"] = time.Now()
			}
			// Compare-and-swap on the old total: a concurrent grant that
			// committed first makes this a no-op and we retry on fresh state.
			res := tx.Model(&models.UserProgress{}).
				Where("external_user_id = ? AND total_xp = ?", externalUserID, prog.TotalXP).
				Updates(columns)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
			applied = true

			entry := models.XPLogEntry{
				ID:             uuid.NewString(),
				ExternalUserID: externalUserID,
				Amount:         amount,
				Source:         source,
				SourceID:       sourceID,
				Description:    description,
			}
			return tx.Create(&entry).Error
		})
		if err != nil {
			return nil, err
		}
		if !applied {
			continue
		}

		log.Printf("🎮 XP granted: %s → +%d XP (total=%d, level=%d, source=%s)",
			externalUserID, amount, newTotal, newLevel, source)

		result := &XPGrantResult{
			XPAdded:   amount,
			TotalXP:   newTotal,
			Level:     newLevel,
			LeveledUp: leveledUp,
		}
		if leveledUp {
			result.NewLevel = newDef
			s.runLevelUpCascades(externalUserID, newLevel)
		}
		return result, nil
	}

	return nil, fmt.Errorf("xp grant for %s did not settle after %d attempts", externalUserID, xpRetryLimit)
}

// runLevelUpCascades unlocks level-gated achievements and titles after a
// committed level-up. The grant is the source of truth — a failed cascade is
// logged and repaired on the next qualifying event (or by the sweep).
func (s *GamificationService) runLevelUpCascades(externalUserID string, newLevel int) {
	if _, err := s.checkAchievements(externalUserID, models.ConditionLevelReach, int64(newLevel), false); err != nil {
		log.Printf("⚠️ LEVEL_REACH cascade failed for %s (level %d): %v", externalUserID, newLevel, err)
	}

	titleSvc := NewTitleService(s.DB)
	if _, err := titleSvc.CheckTitleUnlocks(externalUserID); err != nil {
		log.Printf("⚠️ Title cascade failed for %s (level %d): %v", externalUserID, newLevel, err)
	}
}

// ensureProgressRecord lazily creates the XP account (idempotent under
// concurrent first grants).
func (s *GamificationService) ensureProgressRecord(externalUserID string) (*models.UserProgress, error) {
	var prog models.UserProgress
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&prog).Error
	if err == nil {
		return &prog, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	prog = models.UserProgress{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		TotalXP:        0,
		Level:          1,
	}
	if createErr := s.DB.Create(&prog).Error; createErr != nil {
		if errors.Is(createErr, gorm.ErrDuplicatedKey) {
			// Concurrent first grant won the insert; use its row.
			if err := s.DB.Where("external_user_id = ?", externalUserID).First(&prog).Error; err != nil {
				return nil, err
			}
			return &prog, nil
		}
		return nil, createErr
	}
	return &prog, nil
}

// AwardFirstLogin is the bootstrap sugar the auth module calls on a user's
// first session.
func (s *GamificationService) AwardFirstLogin(externalUserID string) ([]UnlockedAchievement, error) {
	return s.CheckAchievements(externalUserID, models.ConditionLoginCount, 1)
}
