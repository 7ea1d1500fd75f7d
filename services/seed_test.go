package services

import (
	"testing"

	"life-progress-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedReferenceDataIsIdempotent(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, SeedReferenceData(db))
	require.NoError(t, SeedReferenceData(db))

	var levels, achievements, titles int64
	require.NoError(t, db.Model(&models.LevelDefinition{}).Count(&levels).Error)
	require.NoError(t, db.Model(&models.Achievement{}).Count(&achievements).Error)
	require.NoError(t, db.Model(&models.Title{}).Count(&titles).Error)
	assert.Equal(t, int64(len(levelTable)), levels)
	assert.Equal(t, int64(len(achievementCatalog)), achievements)
	assert.Equal(t, int64(len(titleCatalog)), titles)
}

func TestSeededLevelRangesAreContiguous(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, SeedReferenceData(db))

	var defs []models.LevelDefinition
	require.NoError(t, db.Order("level ASC").Find(&defs).Error)
	require.NotEmpty(t, defs)

	assert.Equal(t, int64(0), defs[0].MinXP)
	for i := 1; i < len(defs); i++ {
		assert.Equal(t, defs[i-1].Level+1, defs[i].Level)
		assert.Equal(t, defs[i-1].MaxXP+1, defs[i].MinXP, "gap between level %d and %d", defs[i-1].Level, defs[i].Level)
	}

	// display metadata is derived at seed time
	assert.Equal(t, "novice", defs[0].Slug)
	assert.Equal(t, "icons/levels/novice.svg", defs[0].IconURL)
}

func TestSeededTitleGates(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, SeedReferenceData(db))

	var starter models.Title
	require.NoError(t, db.Where("code = ?", models.StarterTitleCode).First(&starter).Error)
	assert.Nil(t, starter.RequiredLevel)
	assert.Nil(t, starter.RequiredAchievementID)

	var gated models.Title
	require.NoError(t, db.Where("code = ?", "HABIT_MASTER").First(&gated).Error)
	require.NotNil(t, gated.RequiredAchievementID)

	var gate models.Achievement
	require.NoError(t, db.Where("id = ?", *gated.RequiredAchievementID).First(&gate).Error)
	assert.Equal(t, "HUNDRED_HABITS", gate.Code)
}
