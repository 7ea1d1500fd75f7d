package services

import (
	"testing"

	"life-progress-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddXPLevelUp(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, threeLevelTable()...)
	svc := NewGamificationService(db)

	seedProgress(t, db, "user-1", 80, 1)

	result, err := svc.AddXP("user-1", 30, models.XPSourceTask, nil, "task done")
	require.NoError(t, err)

	assert.Equal(t, int64(30), result.XPAdded)
	assert.Equal(t, int64(110), result.TotalXP)
	assert.Equal(t, 2, result.Level)
	assert.True(t, result.LeveledUp)
	require.NotNil(t, result.NewLevel)
	assert.Equal(t, 2, result.NewLevel.Level)

	var prog models.UserProgress
	require.NoError(t, db.Where("external_user_id = ?", "user-1").First(&prog).Error)
	assert.Equal(t, int64(110), prog.TotalXP)
	assert.Equal(t, 2, prog.Level)
	assert.NotNil(t, prog.LastLevelUpAt)

	var entry models.XPLogEntry
	require.NoError(t, db.Where("external_user_id = ?", "user-1").First(&entry).Error)
	assert.Equal(t, int64(30), entry.Amount)
	assert.Equal(t, models.XPSourceTask, entry.Source)
}

func TestAddXPCreatesAccountLazily(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, threeLevelTable()...)
	svc := NewGamificationService(db)

	result, err := svc.AddXP("fresh-user", 10, models.XPSourceHabit, nil, "")
	require.NoError(t, err)
	assert.Equal(t, int64(10), result.TotalXP)
	assert.Equal(t, 1, result.Level)
	assert.False(t, result.LeveledUp)
	assert.Nil(t, result.NewLevel)

	var prog models.UserProgress
	require.NoError(t, db.Where("external_user_id = ?", "fresh-user").First(&prog).Error)
	assert.Equal(t, int64(10), prog.TotalXP)
}

func TestAddXPZeroAmountAllowedNegativeRejected(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, threeLevelTable()...)
	svc := NewGamificationService(db)

	result, err := svc.AddXP("user-1", 0, models.XPSourceLogin, nil, "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.XPAdded)
	assert.False(t, result.LeveledUp)

	_, err = svc.AddXP("user-1", -5, models.XPSourceLogin, nil, "")
	require.Error(t, err)
}

func TestAddXPMonotonicTotal(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, threeLevelTable()...)
	svc := NewGamificationService(db)

	var last int64
	for _, amount := range []int64{5, 0, 40, 12, 0, 90} {
		result, err := svc.AddXP("user-1", amount, models.XPSourceHabit, nil, "")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, result.TotalXP, last)
		last = result.TotalXP

		// level always matches the range containing the total
		var def models.LevelDefinition
		require.NoError(t, db.Where("min_xp <= ? AND max_xp >= ?", result.TotalXP, result.TotalXP).First(&def).Error)
		assert.Equal(t, def.Level, result.Level)
	}
}

func TestAddXPOptOutShortCircuit(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, threeLevelTable()...)
	svc := NewGamificationService(db)

	seedOptOut(t, db, "opted-out")

	result, err := svc.AddXP("opted-out", 50, models.XPSourceTask, nil, "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.XPAdded)
	assert.False(t, result.LeveledUp)

	var progCount int64
	require.NoError(t, db.Model(&models.UserProgress{}).Where("external_user_id = ?", "opted-out").Count(&progCount).Error)
	assert.Zero(t, progCount)
	assert.Zero(t, xpLogCount(t, db, "opted-out"))
}

func TestAddXPLevelTableGapKeepsLevel(t *testing.T) {
	db := newTestDB(t)
	// only level 1 seeded — anything past 99 XP falls into a gap
	seedLevels(t, db, models.LevelDefinition{Level: 1, MinXP: 0, MaxXP: 99, Name: "Novice"})
	svc := NewGamificationService(db)

	result, err := svc.AddXP("user-1", 200, models.XPSourceTask, nil, "")
	require.NoError(t, err)
	assert.Equal(t, int64(200), result.TotalXP)
	assert.Equal(t, 1, result.Level)
	assert.False(t, result.LeveledUp)

	var prog models.UserProgress
	require.NoError(t, db.Where("external_user_id = ?", "user-1").First(&prog).Error)
	assert.Equal(t, int64(200), prog.TotalXP) // the grant itself is never blocked
	assert.Equal(t, 1, prog.Level)
}

func TestCheckAchievementsUnlockOnceAndGrantOnce(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, threeLevelTable()...)
	svc := NewGamificationService(db)

	ach := seedAchievement(t, db, "TEN_HABITS", models.ConditionHabitCompleteCount, 10, 50)

	unlocked, err := svc.CheckAchievements("user-1", models.ConditionHabitCompleteCount, 10)
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	assert.Equal(t, "TEN_HABITS", unlocked[0].Code)
	assert.Equal(t, int64(50), unlocked[0].XPReward)

	var prog models.UserProgress
	require.NoError(t, db.Where("external_user_id = ?", "user-1").First(&prog).Error)
	assert.Equal(t, int64(50), prog.TotalXP)

	// second call with a higher cumulative value: nothing new, no re-grant
	unlocked, err = svc.CheckAchievements("user-1", models.ConditionHabitCompleteCount, 15)
	require.NoError(t, err)
	assert.Empty(t, unlocked)

	require.NoError(t, db.Where("external_user_id = ?", "user-1").First(&prog).Error)
	assert.Equal(t, int64(50), prog.TotalXP)
	assert.Equal(t, int64(1), xpLogCount(t, db, "user-1"))

	var ua models.UserAchievement
	require.NoError(t, db.Where("external_user_id = ? AND achievement_id = ?", "user-1", ach.ID).First(&ua).Error)
	require.NotNil(t, ua.UnlockedAt)
	assert.Equal(t, int64(10), ua.Progress)
}

func TestCheckAchievementsMultipleTiersInOneCall(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, threeLevelTable()...)
	svc := NewGamificationService(db)

	seedAchievement(t, db, "FIVE_TASKS", models.ConditionTaskCompleteCount, 5, 20)
	seedAchievement(t, db, "TEN_TASKS", models.ConditionTaskCompleteCount, 10, 40)

	unlocked, err := svc.CheckAchievements("user-1", models.ConditionTaskCompleteCount, 12)
	require.NoError(t, err)
	require.Len(t, unlocked, 2)
	assert.Equal(t, "FIVE_TASKS", unlocked[0].Code)
	assert.Equal(t, "TEN_TASKS", unlocked[1].Code)

	var prog models.UserProgress
	require.NoError(t, db.Where("external_user_id = ?", "user-1").First(&prog).Error)
	assert.Equal(t, int64(60), prog.TotalXP)
	assert.Equal(t, int64(2), xpLogCount(t, db, "user-1"))
}

func TestCheckAchievementsMetaCascade(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, threeLevelTable()...)
	svc := NewGamificationService(db)

	seedAchievement(t, db, "FIVE_TASKS", models.ConditionTaskCompleteCount, 5, 10)
	seedAchievement(t, db, "TEN_TASKS", models.ConditionTaskCompleteCount, 10, 10)
	meta := seedAchievement(t, db, "COLLECTOR_2", models.ConditionAchievementCount, 2, 30)

	unlocked, err := svc.CheckAchievements("user-1", models.ConditionTaskCompleteCount, 10)
	require.NoError(t, err)
	require.Len(t, unlocked, 3)
	assert.Equal(t, "COLLECTOR_2", unlocked[2].Code)

	var ua models.UserAchievement
	require.NoError(t, db.Where("external_user_id = ? AND achievement_id = ?", "user-1", meta.ID).First(&ua).Error)
	require.NotNil(t, ua.UnlockedAt)

	var prog models.UserProgress
	require.NoError(t, db.Where("external_user_id = ?", "user-1").First(&prog).Error)
	assert.Equal(t, int64(50), prog.TotalXP)
}

func TestAchievementRewardLevelUpCascades(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, threeLevelTable()...)
	svc := NewGamificationService(db)

	// the reward alone pushes the user from L1 into L2 territory
	seedAchievement(t, db, "BIG_ONE", models.ConditionHabitCompleteCount, 1, 150)
	levelAch := seedAchievement(t, db, "LEVEL_2", models.ConditionLevelReach, 2, 25)

	unlocked, err := svc.CheckAchievements("user-1", models.ConditionHabitCompleteCount, 1)
	require.NoError(t, err)
	require.NotEmpty(t, unlocked)

	// the LEVEL_REACH achievement was unlocked by the level-up cascade
	var ua models.UserAchievement
	require.NoError(t, db.Where("external_user_id = ? AND achievement_id = ?", "user-1", levelAch.ID).First(&ua).Error)
	require.NotNil(t, ua.UnlockedAt)

	// its reward was granted exactly once and the level invariant holds
	var prog models.UserProgress
	require.NoError(t, db.Where("external_user_id = ?", "user-1").First(&prog).Error)
	assert.Equal(t, int64(175), prog.TotalXP)
	var def models.LevelDefinition
	require.NoError(t, db.Where("min_xp <= ? AND max_xp >= ?", prog.TotalXP, prog.TotalXP).First(&def).Error)
	assert.Equal(t, def.Level, prog.Level)
	assert.Equal(t, int64(2), xpLogCount(t, db, "user-1"))
}

func TestCheckAchievementsOptOut(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, threeLevelTable()...)
	svc := NewGamificationService(db)

	seedOptOut(t, db, "opted-out")
	seedAchievement(t, db, "TEN_HABITS", models.ConditionHabitCompleteCount, 10, 50)

	unlocked, err := svc.CheckAchievements("opted-out", models.ConditionHabitCompleteCount, 10)
	require.NoError(t, err)
	assert.Empty(t, unlocked)

	var count int64
	require.NoError(t, db.Model(&models.UserAchievement{}).Where("external_user_id = ?", "opted-out").Count(&count).Error)
	assert.Zero(t, count)
}

func TestCheckAchievementsTracksProgressBelowThreshold(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, threeLevelTable()...)
	svc := NewGamificationService(db)

	ach := seedAchievement(t, db, "TEN_HABITS", models.ConditionHabitCompleteCount, 10, 50)

	unlocked, err := svc.CheckAchievements("user-1", models.ConditionHabitCompleteCount, 4)
	require.NoError(t, err)
	assert.Empty(t, unlocked)

	var ua models.UserAchievement
	require.NoError(t, db.Where("external_user_id = ? AND achievement_id = ?", "user-1", ach.ID).First(&ua).Error)
	assert.Nil(t, ua.UnlockedAt)
	assert.Equal(t, int64(4), ua.Progress)

	// a later report moves the counter forward
	_, err = svc.CheckAchievements("user-1", models.ConditionHabitCompleteCount, 7)
	require.NoError(t, err)
	require.NoError(t, db.Where("external_user_id = ? AND achievement_id = ?", "user-1", ach.ID).First(&ua).Error)
	assert.Nil(t, ua.UnlockedAt)
	assert.Equal(t, int64(7), ua.Progress)

	assert.Zero(t, xpLogCount(t, db, "user-1"))
}

func TestUnlockAchievementLosesRaceGracefully(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, threeLevelTable()...)
	svc := NewGamificationService(db)

	ach := seedAchievement(t, db, "TEN_HABITS", models.ConditionHabitCompleteCount, 10, 50)

	fresh, err := svc.unlockAchievement("user-1", ach.ID, 10)
	require.NoError(t, err)
	assert.True(t, fresh)

	// the "concurrent" second claim finds the pair taken
	fresh, err = svc.unlockAchievement("user-1", ach.ID, 12)
	require.NoError(t, err)
	assert.False(t, fresh)
}

func TestAwardFirstLogin(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, threeLevelTable()...)
	svc := NewGamificationService(db)

	seedAchievement(t, db, "FIRST_LOGIN", models.ConditionLoginCount, 1, 25)

	unlocked, err := svc.AwardFirstLogin("user-1")
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	assert.Equal(t, "FIRST_LOGIN", unlocked[0].Code)

	unlocked, err = svc.AwardFirstLogin("user-1")
	require.NoError(t, err)
	assert.Empty(t, unlocked)
}

func TestGetSummary(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, threeLevelTable()...)
	svc := NewGamificationService(db)

	// no account yet: zero-value defaults
	summary, err := svc.GetSummary("nobody")
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.TotalXP)
	assert.Equal(t, 1, summary.Level)
	assert.Equal(t, "Novice", summary.LevelName)
	assert.Zero(t, summary.AchievementsUnlocked)
	assert.Zero(t, summary.TitlesUnlocked)

	seedAchievement(t, db, "TEN_HABITS", models.ConditionHabitCompleteCount, 10, 150)
	_, err = svc.CheckAchievements("user-1", models.ConditionHabitCompleteCount, 10)
	require.NoError(t, err)

	summary, err = svc.GetSummary("user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(150), summary.TotalXP)
	assert.Equal(t, 2, summary.Level)
	assert.Equal(t, "Apprentice", summary.LevelName)
	assert.Equal(t, int64(1), summary.AchievementsUnlocked)
}
