package models

import (
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AwardKind names a milestone category.
type AwardKind string

const (
	// AwardLifetimeSteps accumulates a running sum of daily step counts.
	AwardLifetimeSteps AwardKind = "lifetime_steps"
	// AwardAttendanceDays counts calendar days with any positive report.
	AwardAttendanceDays AwardKind = "attendance_days"
)

// AwardCrossing caches the first calendar date a participant met a
// threshold. Write-once per key in the steady state; recomputed only on a
// cache miss. Stale rows after retroactive data edits are cleared by the
// admin surface, never automatically.
type AwardCrossing struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index:idx_award_user_key,unique,priority:1;not null" json:"user_id"`
	AwardKey  string    `gorm:"index:idx_award_user_key,unique,priority:2;not null" json:"award_key"`
	Kind      string    `gorm:"not null" json:"kind"`
	Threshold int       `gorm:"not null" json:"threshold"`
	AwardedAt string    `gorm:"not null" json:"awarded_at"` // ISO date
	CreatedAt time.Time `json:"created_at"`
}

// AwardKeyFor builds the cache key for a category and threshold.
func AwardKeyFor(kind AwardKind, threshold int) string {
	return fmt.Sprintf("%s_%d", kind, threshold)
}

const isoDate = "2006-01-02"

// dailyTimeline expands every historical entry of a user into per-date step
// values. Week rows are keyed by their Monday date, so column i lands on
// Monday+i. A date seen twice keeps the maximum observed value, not the sum,
// so overlapping data sources cannot double-count.
func dailyTimeline(db *gorm.DB, userID uint) ([]string, map[string]int, error) {
	var entries []Entry
	if err := db.Where("user_id = ?", userID).Order("week ASC").Find(&entries).Error; err != nil {
		return nil, nil, err
	}

	values := make(map[string]int)
	for _, e := range entries {
		start, err := time.Parse(isoDate, e.Week)
		if err != nil {
			continue // malformed legacy week key; skip rather than abort history
		}
		for i, col := range DayColumns {
			v := e.DayValue(col)
			if v == nil {
				continue
			}
			date := start.AddDate(0, 0, i).Format(isoDate)
			if *v > values[date] {
				values[date] = *v
			}
		}
	}

	dates := make([]string, 0, len(values))
	for d := range values {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates, values, nil
}

// ComputeCrossings walks the user's full daily timeline once and returns the
// first date each threshold was met or exceeded. Thresholds must be ascending;
// the pointer into them only ever advances, so the walk is a single linear
// pass no matter how many thresholds there are. Thresholds never reached are
// absent from the result.
func ComputeCrossings(db *gorm.DB, userID uint, kind AwardKind, thresholds []int) (map[int]string, error) {
	dates, values, err := dailyTimeline(db, userID)
	if err != nil {
		return nil, err
	}

	crossed := make(map[int]string, len(thresholds))
	running := 0
	ti := 0
	for _, date := range dates {
		switch kind {
		case AwardAttendanceDays:
			if values[date] > 0 {
				running++
			}
		default:
			running += values[date]
		}
		for ti < len(thresholds) && running >= thresholds[ti] {
			crossed[thresholds[ti]] = date
			ti++
		}
		if ti == len(thresholds) {
			break
		}
	}
	return crossed, nil
}

// CrossingDates returns the crossing date per earned threshold, reading the
// cache first and computing at most once for whatever is missing. Freshly
// computed dates are written through before returning.
func CrossingDates(db *gorm.DB, w *Writer, userID uint, kind AwardKind, thresholds []int) (map[int]string, error) {
	var cached []AwardCrossing
	if err := db.Where("user_id = ? AND kind = ?", userID, string(kind)).Find(&cached).Error; err != nil {
		return nil, err
	}

	result := make(map[int]string, len(thresholds))
	have := make(map[int]bool, len(cached))
	for _, c := range cached {
		have[c.Threshold] = true
		result[c.Threshold] = c.AwardedAt
	}

	missing := false
	for _, t := range thresholds {
		if !have[t] {
			missing = true
			break
		}
	}
	if !missing {
		return result, nil
	}

	computed, err := ComputeCrossings(db, userID, kind, thresholds)
	if err != nil {
		return nil, err
	}
	for _, t := range thresholds {
		if have[t] {
			continue
		}
		date, earned := computed[t]
		if !earned {
			continue
		}
		result[t] = date
		row := AwardCrossing{
			UserID:    userID,
			AwardKey:  AwardKeyFor(kind, t),
			Kind:      string(kind),
			Threshold: t,
			AwardedAt: date,
		}
		if err := w.Do(func(tx *gorm.DB) error {
			return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
		}); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// ClearAwardCache deletes every cached crossing. The admin surface calls this
// after retroactive data corrections; the next read recomputes.
func ClearAwardCache(w *Writer) error {
	return w.Do(func(tx *gorm.DB) error {
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&AwardCrossing{}).Error
	})
}

// AwardLabel maps a category and milestone to its display name.
func AwardLabel(kind AwardKind, milestone int) string {
	switch kind {
	case AwardLifetimeSteps:
		switch milestone {
		case 100000:
			return "100k Club"
		case 250000:
			return "Quarter Million"
		case 500000:
			return "Half Million"
		case 1000000:
			return "Million Steps"
		}
		if milestone >= 1000 {
			return fmt.Sprintf("%sk Steps", formatInt(milestone/1000))
		}
		return fmt.Sprintf("%s Steps", formatInt(milestone))
	case AwardAttendanceDays:
		switch milestone {
		case 175, 350, 700:
			return fmt.Sprintf("%d-Day Streak", milestone)
		}
		return fmt.Sprintf("%s Check-in Days", formatInt(milestone))
	}
	return fmt.Sprintf("%s %d", kind, milestone)
}

// formatInt renders n with comma thousands separators.
func formatInt(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	return string(out)
}
