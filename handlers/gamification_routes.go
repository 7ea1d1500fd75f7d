// handlers/gamification_routes.go
package handlers

import (
	"time"

	"life-progress-system/middleware"
	"life-progress-system/models"
	"life-progress-system/services"

	"github.com/gofiber/fiber/v2"
)

// reportableConditions are the metrics the platform modules may report; the
// engine-internal LEVEL_REACH / ACHIEVEMENT_COUNT types are never accepted
// from outside.
var reportableConditions = map[string]bool{
	models.ConditionHabitCompleteCount: true,
	models.ConditionTaskCompleteCount:  true,
	models.ConditionLoginCount:         true,
	models.ConditionStreakDays:         true,
	models.ConditionFinanceEntryCount:  true,
	models.ConditionWorkoutCount:       true,
	models.ConditionStudyMinutes:       true,
}

func SetupGamificationRoutes(app *fiber.App, gamService *services.GamificationService, titleService *services.TitleService) {
	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	// The generic activity-report entry point every module calls after a
	// qualifying event (habit completed, task done, login, ...). The value
	// is the user's cumulative count for that metric, not a delta.
	securedGroup.Post("/activity/report", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			ConditionType string `json:"condition_type" validate:"required"`
			CurrentValue  int64  `json:"current_value" validate:"required,min=0"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if !reportableConditions[req.ConditionType] {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "unknown condition type",
			})
		}
		if req.CurrentValue < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "current_value must not be negative",
			})
		}

		unlocked, err := gamService.CheckAchievements(userID, req.ConditionType, req.CurrentValue)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "achievement check failed",
				"cause": err.Error(),
			})
		}
		if unlocked == nil {
			unlocked = []services.UnlockedAchievement{}
		}
		return c.JSON(fiber.Map{
			"unlocked": unlocked,
		})
	})

	securedGroup.Post("/activity/first-login", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		unlocked, err := gamService.AwardFirstLogin(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "first-login award failed",
				"cause": err.Error(),
			})
		}
		if unlocked == nil {
			unlocked = []services.UnlockedAchievement{}
		}
		return c.JSON(fiber.Map{"unlocked": unlocked})
	})

	// Called once by the profile service when an account is created.
	securedGroup.Post("/user/bootstrap", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if err := titleService.GrantFirstTitle(userID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "bootstrap failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"message": "bootstrap complete"})
	})

	securedGroup.Get("/user/summary", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		summary, err := gamService.GetSummary(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load summary",
				"cause": err.Error(),
			})
		}
		return c.JSON(summary)
	})

	securedGroup.Get("/user/achievements", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var catalog []models.Achievement
		if err := gamService.DB.Order("condition_type, condition_value").Find(&catalog).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load achievements",
				"cause": err.Error(),
			})
		}

		var state []models.UserAchievement
		if err := gamService.DB.Where("external_user_id = ?", userID).Find(&state).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load unlock state",
				"cause": err.Error(),
			})
		}
		byAchievement := make(map[string]models.UserAchievement, len(state))
		for _, ua := range state {
			byAchievement[ua.AchievementID] = ua
		}

		response := make([]fiber.Map, 0, len(catalog))
		for _, ach := range catalog {
			entry := fiber.Map{
				"id":              ach.ID,
				"code":            ach.Code,
				"name":            ach.Name,
				"description":     ach.Description,
				"condition_type":  ach.ConditionType,
				"condition_value": ach.ConditionValue,
				"xp_reward":       ach.XPReward,
				"rarity":          ach.Rarity,
				"icon_url":        ach.IconURL,
				"unlocked":        false,
				"progress":        int64(0),
			}
			if ua, ok := byAchievement[ach.ID]; ok {
				entry["progress"] = ua.Progress
				if ua.UnlockedAt != nil {
					entry["unlocked"] = true
					entry["unlocked_at"] = ua.UnlockedAt
				}
			}
			response = append(response, entry)
		}
		return c.JSON(response)
	})

	securedGroup.Get("/user/titles", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type unlockedTitleRow struct {
			ID         string    `json:"id"`
			Code       string    `json:"code"`
			Name       string    `json:"name"`
			Rarity     string    `json:"rarity"`
			IsActive   bool      `json:"is_active"`
			UnlockedAt time.Time `json:"unlocked_at"`
		}
		var rows []unlockedTitleRow
		if err := gamService.DB.Raw(`
		SELECT t.id, t.code, t.name, t.rarity, ut.is_active, ut.unlocked_at
		FROM user_titles ut
		INNER JOIN titles t ON t.id = ut.title_id
		WHERE ut.external_user_id = ?
		ORDER BY ut.unlocked_at ASC
	`, userID).Scan(&rows).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load titles",
				"cause": err.Error(),
			})
		}
		if rows == nil {
			rows = []unlockedTitleRow{}
		}
		return c.JSON(rows)
	})

	securedGroup.Post("/user/titles/:id/equip", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		titleID := c.Params("id")

		if err := titleService.EquipTitle(userID, titleID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "equip failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"message": "title equipped", "title_id": titleID})
	})

	// The explicit path for achievement-gated titles.
	securedGroup.Post("/user/titles/claim", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			AchievementID string `json:"achievement_id" validate:"required,uuid"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil || req.AchievementID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}

		unlocked, err := titleService.ClaimForAchievement(userID, req.AchievementID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "claim failed",
				"cause": err.Error(),
			})
		}
		if unlocked == nil {
			unlocked = []services.UnlockedTitle{}
		}
		return c.JSON(fiber.Map{"unlocked": unlocked})
	})

	// Admin endpoints
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	adminGroup.Post("/xp/grant", func(c *fiber.Ctx) error {
		type Req struct {
			UserID      string `json:"user_id" validate:"required,uuid"`
			XP          int64  `json:"xp" validate:"required,min=0"`
			Description string `json:"description" validate:"max=255"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.XP < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "xp must not be negative"})
		}

		result, err := gamService.AddXP(req.UserID, req.XP, models.XPSourceAdminGrant, nil, req.Description)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "XP grant failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})
}
