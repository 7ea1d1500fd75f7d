// services/scheduler.go
package services

import (
	"log"
	"time"

	"life-progress-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartReconciliationSweep repairs best-effort cascades in the background:
// a level-up whose title or meta-achievement cascade failed is healed on the
// next sweep because both checks are idempotent. Looks only at accounts that
// changed since the previous run.
func (s *GamificationService) StartReconciliationSweep(interval time.Duration) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	lastSweep := time.Now().Add(-interval)

	_, _ = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			since := lastSweep
			lastSweep = time.Now()

			var accounts []models.UserProgress
			if err := s.DB.Where("updated_at >= ?", since).Find(&accounts).Error; err != nil {
				log.Printf("[Sweep] DB error: %v", err)
				return
			}
			if len(accounts) == 0 {
				return
			}

			titleSvc := NewTitleService(s.DB)
			for _, prog := range accounts {
				if _, err := titleSvc.CheckTitleUnlocks(prog.ExternalUserID); err != nil {
					log.Printf("[Sweep] Title check failed for %s: %v", prog.ExternalUserID, err)
				}

				var totalUnlocked int64
				if err := s.DB.Model(&models.UserAchievement{}).
					Where("external_user_id = ? AND unlocked_at IS NOT NULL", prog.ExternalUserID).
					Count(&totalUnlocked).Error; err != nil {
					log.Printf("[Sweep] Unlock count failed for %s: %v", prog.ExternalUserID, err)
					continue
				}
				if totalUnlocked == 0 {
					continue
				}
				if _, err := s.CheckAchievements(prog.ExternalUserID, models.ConditionAchievementCount, totalUnlocked); err != nil {
					log.Printf("[Sweep] Meta check failed for %s: %v", prog.ExternalUserID, err)
				}
			}
			log.Printf("[Sweep] ✅ Reconciled %d account(s) changed since %s", len(accounts), since.Format(time.RFC3339))
		}),
	)
}
