// workers/settings_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"life-progress-system/models"
	"life-progress-system/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsFromProfile matches the JSON rows returned by the profile
// service's change feed. The engine only needs the opt-in flag; everything
// else the feed carries is ignored.
type SettingsFromProfile struct {
	ExternalID          string    `json:"external_id"`
	GamificationEnabled bool      `json:"gamification_enabled"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// GetSettingsChangesResponse is the top-level structure of the change feed.
type GetSettingsChangesResponse struct {
	Settings []SettingsFromProfile `json:"settings"`
}

// SettingsSyncWorker mirrors the per-user gamification opt-in flag from the
// Profile Service into the local user_settings table. The engine reads only
// the mirror, so a profile outage degrades to slightly stale flags instead
// of failed grants.
type SettingsSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string // e.g., "http://localhost:8500"
	endpointPath string // e.g., "/api/v1/public/settings"
	serviceToken string
}

func NewSettingsSyncWorker(db *gorm.DB, profileServiceBaseURL, endpointPath, serviceToken string) *SettingsSyncWorker {
	return &SettingsSyncWorker{
		db:           db,
		interval:     1 * time.Minute,
		baseURL:      profileServiceBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
	}
}

func (w *SettingsSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Settings Sync Worker (profile-service → user_settings)…")
	go w.run(ctx)
}

func (w *SettingsSyncWorker) run(ctx context.Context) {
	// Initial sync backfills from the beginning of time.
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		log.Printf("⚠️ Initial settings sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.syncBatch(ctx, w.getLastSyncTime()); err != nil {
				log.Printf("❌ Settings sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Settings Sync Worker stopped")
			return
		}
	}
}

// getLastSyncTime finds the most recent UpdatedAt in the local mirror.
func (w *SettingsSyncWorker) getLastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw("SELECT MAX(updated_at) FROM user_settings WHERE deleted_at IS NULL").Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0)
	}
	return lastTime
}

// syncBatch fetches settings changed since the given time and upserts them
// into the local mirror.
func (w *SettingsSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	sinceStr := since.UTC().Format(time.RFC3339)

	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid profile service URL '%s': %w", w.baseURL, err)
	}
	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", sinceStr)
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	req, err := http.NewRequestWithContext(ctx, "GET", finalURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := utils.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request to profile service failed: %w", err)
	}
	defer func() {
		// Always drain & close to prevent connection leaks
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("[SYNC] ❌ Profile service returned %d for %s: %s", resp.StatusCode, finalURL, string(body))
		return fmt.Errorf("profile service non-200 response: %d", resp.StatusCode)
	}

	var response GetSettingsChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode profile service response: %w", err)
	}

	if len(response.Settings) == 0 {
		return nil
	}

	var upsertCount, errorCount int
	for _, remote := range response.Settings {
		local := models.UserSettings{
			ID:                  uuid.NewString(),
			ExternalUserID:      remote.ExternalID,
			GamificationEnabled: remote.GamificationEnabled,
			UpdatedAt:           remote.UpdatedAt,
		}
		if err := w.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"gamification_enabled", "updated_at"}),
		}).Create(&local).Error; err != nil {
			errorCount++
			log.Printf("[SYNC] ⚠️ Failed to upsert user_settings (external_id=%q): %v", remote.ExternalID, err)
		} else {
			upsertCount++
		}
	}

	log.Printf("[SYNC] ✅ Synced %d setting(s) since %s (%d upserted, %d errors)",
		len(response.Settings), sinceStr, upsertCount, errorCount)
	return nil
}
