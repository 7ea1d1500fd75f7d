package services

import (
	"testing"

	"life-progress-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database with the production schema.
// MaxOpenConns(1) keeps every query on the single connection that owns the
// in-memory store.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.LevelDefinition{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.Title{},
		&models.UserTitle{},
		&models.UserProgress{},
		&models.XPLogEntry{},
		&models.UserSettings{},
	))
	return db
}

func seedLevels(t *testing.T, db *gorm.DB, defs ...models.LevelDefinition) {
	t.Helper()
	for i := range defs {
		require.NoError(t, db.Create(&defs[i]).Error)
	}
}

// threeLevelTable is the table used by most scenarios:
// L1 [0,99], L2 [100,299], L3 [300,599].
func threeLevelTable() []models.LevelDefinition {
	return []models.LevelDefinition{
		{Level: 1, MinXP: 0, MaxXP: 99, Name: "Novice"},
		{Level: 2, MinXP: 100, MaxXP: 299, Name: "Apprentice"},
		{Level: 3, MinXP: 300, MaxXP: 599, Name: "Adept"},
	}
}

func seedAchievement(t *testing.T, db *gorm.DB, code, conditionType string, conditionValue, xpReward int64) models.Achievement {
	t.Helper()
	ach := models.Achievement{
		ID:             uuid.NewString(),
		Code:           code,
		Name:           code,
		ConditionType:  conditionType,
		ConditionValue: conditionValue,
		XPReward:       xpReward,
		Rarity:         "common",
	}
	require.NoError(t, db.Create(&ach).Error)
	return ach
}

func seedTitle(t *testing.T, db *gorm.DB, code string, requiredLevel *int, requiredAchievementID *string) models.Title {
	t.Helper()
	title := models.Title{
		ID:                    uuid.NewString(),
		Code:                  code,
		Name:                  code,
		Rarity:                "common",
		RequiredLevel:         requiredLevel,
		RequiredAchievementID: requiredAchievementID,
	}
	require.NoError(t, db.Create(&title).Error)
	return title
}

func seedProgress(t *testing.T, db *gorm.DB, userID string, totalXP int64, level int) {
	t.Helper()
	prog := models.UserProgress{
		ID:             uuid.NewString(),
		ExternalUserID: userID,
		TotalXP:        totalXP,
		Level:          level,
	}
	require.NoError(t, db.Create(&prog).Error)
}

func seedOptOut(t *testing.T, db *gorm.DB, userID string) {
	t.Helper()
	settings := models.UserSettings{
		ID:                  uuid.NewString(),
		ExternalUserID:      userID,
		GamificationEnabled: false,
	}
	require.NoError(t, db.Create(&settings).Error)
}

func xpLogCount(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.XPLogEntry{}).
		Where("external_user_id = ?", userID).Count(&count).Error)
	return count
}
