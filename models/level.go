package models

// LevelDefinition is a static reference row mapping an XP range to a level.
// Seeded once at boot; ranges are contiguous, non-overlapping and ordered by
// level ascending (min_xp of level N == max_xp of level N-1 + 1).
type LevelDefinition struct {
	Level   int    `gorm:"primaryKey" json:"level"`
	MinXP   int64  `gorm:"column:min_xp;not null" json:"min_xp"`
	MaxXP   int64  `gorm:"column:max_xp;not null" json:"max_xp"`
	Name    string `gorm:"not null" json:"name"`
	Slug    string `gorm:"index" json:"slug"`
	IconURL string `gorm:"type:text" json:"icon_url"` // e.g., R2/CDN URL to SVG/png
}
