package models

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Settings keys consumed by the inbound pipeline and the milestone engine.
const (
	SettingRateWindowSec  = "sms.inbound_rate_window_sec"
	SettingLifetimeSteps  = "milestones.lifetime_steps"
	SettingAttendanceDays = "milestones.attendance_days"
	SettingAwardsEnabled  = "sms.awards_enabled"
)

// Setting is a key/value row read at computation time, written by the admin
// surface. There is no process-lifetime memo; callers read through the store.
type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetSetting reads a setting, falling back to def when absent.
func GetSetting(db *gorm.DB, key, def string) string {
	var s Setting
	if err := db.First(&s, "key = ?", key).Error; err != nil {
		return def
	}
	return s.Value
}

// GetSettingInt reads an integer setting, falling back to def when absent or
// unparsable.
func GetSettingInt(db *gorm.DB, key string, def int) int {
	raw := GetSetting(db, key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}

// SetSetting upserts a setting through the writer.
func SetSetting(w *Writer, key, value string) error {
	return w.Do(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&Setting{Key: key, Value: value, UpdatedAt: time.Now()}).Error
	})
}

// ThresholdsFromSetting parses a comma-separated threshold list from the
// settings table, falling back to def. The result is positive, ascending and
// deduplicated regardless of how the raw value was written.
func ThresholdsFromSetting(db *gorm.DB, key string, def []int) []int {
	raw := GetSetting(db, key, "")
	values := def
	if raw != "" {
		parsed := make([]int, 0, 8)
		for _, part := range strings.Split(raw, ",") {
			v, err := strconv.Atoi(strings.TrimSpace(part))
			if err == nil {
				parsed = append(parsed, v)
			}
		}
		if len(parsed) > 0 {
			values = parsed
		}
	}
	return normalizeThresholds(values)
}

func normalizeThresholds(values []int) []int {
	out := make([]int, 0, len(values))
	for _, v := range values {
		if v > 0 {
			out = append(out, v)
		}
	}
	sort.Ints(out)
	dedup := out[:0]
	for i, v := range out {
		if i == 0 || v != out[i-1] {
			dedup = append(dedup, v)
		}
	}
	return dedup
}
