package services

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"life-progress-system/models"
	"life-progress-system/utils"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Reference data: level table, achievement catalog, title catalog. Seeded
// insert-if-absent by natural key at boot; rows are immutable afterwards.

var levelTable = []models.LevelDefinition{
	{Level: 1, MinXP: 0, MaxXP: 99, Name: "Novice"},
	{Level: 2, MinXP: 100, MaxXP: 299, Name: "Apprentice"},
	{Level: 3, MinXP: 300, MaxXP: 599, Name: "Adept"},
	{Level: 4, MinXP: 600, MaxXP: 999, Name: "Journeyman"},
	{Level: 5, MinXP: 1000, MaxXP: 1499, Name: "Expert"},
	{Level: 6, MinXP: 1500, MaxXP: 2099, Name: "Veteran"},
	{Level: 7, MinXP: 2100, MaxXP: 2799, Name: "Master"},
	{Level: 8, MinXP: 2800, MaxXP: 3599, Name: "Grandmaster"},
	{Level: 9, MinXP: 3600, MaxXP: 4499, Name: "Sage"},
	{Level: 10, MinXP: 4500, MaxXP: math.MaxInt64, Name: "Legend"},
}

var achievementCatalog = []models.Achievement{
	{Code: "FIRST_LOGIN", Name: "Welcome Aboard!", Description: "Logged in for the first time",
		ConditionType: models.ConditionLoginCount, ConditionValue: 1, XPReward: 25, Rarity: "common"},
	{Code: "WEEK_OF_LOGINS", Name: "Regular", Description: "Logged in 7 times",
		ConditionType: models.ConditionLoginCount, ConditionValue: 7, XPReward: 50, Rarity: "common"},

	{Code: "FIRST_HABIT", Name: "First Step", Description: "Completed your first habit",
		ConditionType: models.ConditionHabitCompleteCount, ConditionValue: 1, XPReward: 25, Rarity: "common"},
	{Code: "TEN_HABITS", Name: "Habit Builder", Description: "Completed 10 habits",
		ConditionType: models.ConditionHabitCompleteCount, ConditionValue: 10, XPReward: 50, Rarity: "common"},
	{Code: "HUNDRED_HABITS", Name: "Creature of Habit", Description: "Completed 100 habits",
		ConditionType: models.ConditionHabitCompleteCount, ConditionValue: 100, XPReward: 200, Rarity: "epic"},

	{Code: "FIRST_TASK", Name: "Getting Things Done", Description: "Completed your first task",
		ConditionType: models.ConditionTaskCompleteCount, ConditionValue: 1, XPReward: 25, Rarity: "common"},
	{Code: "FIFTY_TASKS", Name: "Task Force", Description: "Completed 50 tasks",
		ConditionType: models.ConditionTaskCompleteCount, ConditionValue: 50, XPReward: 100, Rarity: "rare"},

	{Code: "STREAK_7", Name: "One Week Strong", Description: "Kept a 7-day streak",
		ConditionType: models.ConditionStreakDays, ConditionValue: 7, XPReward: 75, Rarity: "rare"},
	{Code: "STREAK_30", Name: "Unstoppable", Description: "Kept a 30-day streak",
		ConditionType: models.ConditionStreakDays, ConditionValue: 30, XPReward: 250, Rarity: "epic"},

	{Code: "BUDGET_KEEPER", Name: "Budget Keeper", Description: "Recorded 10 finance entries",
		ConditionType: models.ConditionFinanceEntryCount, ConditionValue: 10, XPReward: 50, Rarity: "common"},
	{Code: "TWENTY_WORKOUTS", Name: "Iron Will", Description: "Finished 20 workouts",
		ConditionType: models.ConditionWorkoutCount, ConditionValue: 20, XPReward: 100, Rarity: "rare"},
	{Code: "STUDY_TEN_HOURS", Name: "Scholar", Description: "Studied for 10 hours",
		ConditionType: models.ConditionStudyMinutes, ConditionValue: 600, XPReward: 100, Rarity: "rare"},

	{Code: "LEVEL_5", Name: "Halfway Up", Description: "Reached level 5",
		ConditionType: models.ConditionLevelReach, ConditionValue: 5, XPReward: 100, Rarity: "rare"},
	{Code: "LEVEL_10", Name: "Top of the Mountain", Description: "Reached level 10",
		ConditionType: models.ConditionLevelReach, ConditionValue: 10, XPReward: 500, Rarity: "legendary"},

	{Code: "COLLECTOR_5", Name: "Collector", Description: "Unlocked 5 achievements",
		ConditionType: models.ConditionAchievementCount, ConditionValue: 5, XPReward: 50, Rarity: "rare"},
	{Code: "COLLECTOR_15", Name: "Completionist", Description: "Unlocked 15 achievements",
		ConditionType: models.ConditionAchievementCount, ConditionValue: 15, XPReward: 200, Rarity: "legendary"},
}

type titleSeed struct {
	code                    string
	name                    string
	rarity                  string
	requiredLevel           *int
	requiredAchievementCode string
}

func lvl(n int) *int { return &n }

var titleCatalog = []titleSeed{
	// Starter title: no gate at all, granted only by the bootstrap path.
	{code: models.StarterTitleCode, name: "Newcomer", rarity: "common"},
	{code: "RISING_STAR", name: "Rising Star", rarity: "common", requiredLevel: lvl(3)},
	{code: "DEDICATED", name: "The Dedicated", rarity: "rare", requiredLevel: lvl(5)},
	{code: "RELENTLESS", name: "The Relentless", rarity: "epic", requiredLevel: lvl(8)},
	{code: "LIVING_LEGEND", name: "Living Legend", rarity: "legendary", requiredLevel: lvl(10)},
	{code: "HABIT_MASTER", name: "Habit Master", rarity: "epic", requiredAchievementCode: "HUNDRED_HABITS"},
	{code: "STREAK_KEEPER", name: "Streak Keeper", rarity: "epic", requiredAchievementCode: "STREAK_30"},
}

// SeedReferenceData populates the three reference tables. Safe to run on
// every boot: existing rows (matched by level / code) are left untouched.
func SeedReferenceData(db *gorm.DB) error {
	for _, def := range levelTable {
		var existing models.LevelDefinition
		err := db.Where("level = ?", def.Level).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("seeding level %d: %w", def.Level, err)
		}
		def.Slug = slug.Make(def.Name)
		def.IconURL = resolveIconURL("levels", def.Slug)
		if err := db.Create(&def).Error; err != nil {
			return fmt.Errorf("seeding level %d: %w", def.Level, err)
		}
	}

	for _, ach := range achievementCatalog {
		var existing models.Achievement
		err := db.Where("code = ?", ach.Code).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("seeding achievement %s: %w", ach.Code, err)
		}
		ach.ID = uuid.NewString()
		ach.IconURL = resolveIconURL("achievements", slug.Make(ach.Code))
		if err := db.Create(&ach).Error; err != nil {
			return fmt.Errorf("seeding achievement %s: %w", ach.Code, err)
		}
	}

	for _, seed := range titleCatalog {
		var existing models.Title
		err := db.Where("code = ?", seed.code).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("seeding title %s: %w", seed.code, err)
		}
		title := models.Title{
			ID:            uuid.NewString(),
			Code:          seed.code,
			Name:          seed.name,
			Rarity:        seed.rarity,
			RequiredLevel: seed.requiredLevel,
		}
		if seed.requiredAchievementCode != "" {
			var gate models.Achievement
			if err := db.Where("code = ?", seed.requiredAchievementCode).First(&gate).Error; err != nil {
				return fmt.Errorf("seeding title %s: gate achievement %s: %w", seed.code, seed.requiredAchievementCode, err)
			}
			title.RequiredAchievementID = &gate.ID
		}
		if err := db.Create(&title).Error; err != nil {
			return fmt.Errorf("seeding title %s: %w", seed.code, err)
		}
	}

	log.Printf("✅ Reference data seeded: %d levels, %d achievements, %d titles",
		len(levelTable), len(achievementCatalog), len(titleCatalog))
	return nil
}

// resolveIconURL publishes the bundled icon asset to R2 when both the asset
// dir and R2 are configured, and falls back to the bare object key so
// clients can still resolve icons through their own CDN base.
func resolveIconURL(kind, name string) string {
	key := fmt.Sprintf("icons/%s/%s.svg", kind, name)

	assetDir := os.Getenv("ICON_ASSET_DIR")
	if assetDir == "" || !utils.R2Configured() {
		return key
	}

	localPath := filepath.Join(assetDir, kind, name+".svg")
	if _, err := os.Stat(localPath); err != nil {
		return key
	}

	url, err := utils.UploadFileFromPath(localPath, key, "image/svg+xml")
	if err != nil {
		log.Printf("⚠️ Icon upload failed for %s: %v", key, err)
		return key
	}
	return url
}
