package utils

import (
	"strings"
	"time"
)

// dayColumns mirrors the six tracked days; Sunday reports fold into Saturday.
var dayColumns = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

var dayPrefixes = map[string]string{
	"mon": "monday",
	"tue": "tuesday",
	"wed": "wednesday",
	"thu": "thursday",
	"fri": "friday",
	"sat": "saturday",
}

// MapDayToColumn resolves a user-typed day name ("tue", "Tuesday", "TUES") to
// its column, matching on the first three letters. Sunday is not a column and
// resolves false.
func MapDayToColumn(name string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(name))
	if len(s) < 3 {
		return "", false
	}
	col, ok := dayPrefixes[s[:3]]
	return col, ok
}

// ResolveTargetDay picks the day column a report lands on. An explicit
// override wins. Otherwise the noon rule applies: before 12:00 local the
// report is for yesterday, from noon on it is for today. Sunday folds into
// saturday in both directions.
func ResolveTargetDay(now time.Time, override string) (string, bool) {
	if override != "" {
		return MapDayToColumn(override)
	}
	target := now
	if now.Hour() < 12 {
		target = now.AddDate(0, 0, -1)
	}
	w := target.Weekday()
	if w == time.Sunday {
		return "saturday", true
	}
	return dayColumns[int(w)-1], true
}

// LoadLocation resolves a tz database name, falling back to UTC on failure so
// a bad config degrades rather than crashes.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DayLabel renders the human word for a resolved column relative to now:
// "yesterday", "today", or the column name itself.
func DayLabel(now time.Time, col string) string {
	today, okT := ResolveTargetDay(time.Date(now.Year(), now.Month(), now.Day(), 13, 0, 0, 0, now.Location()), "")
	yesterday, okY := ResolveTargetDay(time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, now.Location()), "")
	if okT && col == today {
		return "today"
	}
	if okY && col == yesterday {
		return "yesterday"
	}
	if col == "" {
		return col
	}
	return strings.ToUpper(col[:1]) + col[1:]
}
