package models

import "time"

// Entry holds one participant's six day columns for one week, plus the
// write-once "first reported at" stamp for each day (unix seconds, UTC).
// Rows are keyed by (week, user id); the name column is a denormalized
// display copy refreshed at upsert time, never joined on.
type Entry struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Week   string `gorm:"index:idx_entries_week_user,unique,priority:1;not null" json:"week"`
	UserID uint   `gorm:"index:idx_entries_week_user,unique,priority:2;not null" json:"user_id"`
	Name   string `gorm:"index;not null" json:"name"`

	Monday    *int `gorm:"check:monday IS NULL OR monday >= 0" json:"monday"`
	Tuesday   *int `gorm:"check:tuesday IS NULL OR tuesday >= 0" json:"tuesday"`
	Wednesday *int `gorm:"check:wednesday IS NULL OR wednesday >= 0" json:"wednesday"`
	Thursday  *int `gorm:"check:thursday IS NULL OR thursday >= 0" json:"thursday"`
	Friday    *int `gorm:"check:friday IS NULL OR friday >= 0" json:"friday"`
	Saturday  *int `gorm:"check:saturday IS NULL OR saturday >= 0" json:"saturday"`

	MonReportedAt *int64 `json:"mon_reported_at,omitempty"`
	TueReportedAt *int64 `json:"tue_reported_at,omitempty"`
	WedReportedAt *int64 `json:"wed_reported_at,omitempty"`
	ThuReportedAt *int64 `json:"thu_reported_at,omitempty"`
	FriReportedAt *int64 `json:"fri_reported_at,omitempty"`
	SatReportedAt *int64 `json:"sat_reported_at,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// DayColumns lists the six ledger columns in calendar order. There is no
// Sunday column; Sunday activity lands in saturday at resolution time.
var DayColumns = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// IsValidDayColumn reports whether col names one of the six ledger columns.
func IsValidDayColumn(col string) bool {
	for _, c := range DayColumns {
		if c == col {
			return true
		}
	}
	return false
}

// DayValue returns the step count stored in the named column.
func (e *Entry) DayValue(col string) *int {
	switch col {
	case "monday":
		return e.Monday
	case "tuesday":
		return e.Tuesday
	case "wednesday":
		return e.Wednesday
	case "thursday":
		return e.Thursday
	case "friday":
		return e.Friday
	case "saturday":
		return e.Saturday
	}
	return nil
}

// SetDayValue stores a step count in the named column.
func (e *Entry) SetDayValue(col string, v *int) {
	switch col {
	case "monday":
		e.Monday = v
	case "tuesday":
		e.Tuesday = v
	case "wednesday":
		e.Wednesday = v
	case "thursday":
		e.Thursday = v
	case "friday":
		e.Friday = v
	case "saturday":
		e.Saturday = v
	}
}

// ReportedAt returns the first-report stamp for the named column.
func (e *Entry) ReportedAt(col string) *int64 {
	switch col {
	case "monday":
		return e.MonReportedAt
	case "tuesday":
		return e.TueReportedAt
	case "wednesday":
		return e.WedReportedAt
	case "thursday":
		return e.ThuReportedAt
	case "friday":
		return e.FriReportedAt
	case "saturday":
		return e.SatReportedAt
	}
	return nil
}

// SetReportedAt stores the first-report stamp for the named column.
func (e *Entry) SetReportedAt(col string, ts *int64) {
	switch col {
	case "monday":
		e.MonReportedAt = ts
	case "tuesday":
		e.TueReportedAt = ts
	case "wednesday":
		e.WedReportedAt = ts
	case "thursday":
		e.ThuReportedAt = ts
	case "friday":
		e.FriReportedAt = ts
	case "saturday":
		e.SatReportedAt = ts
	}
}

// WeekTotal sums the recorded days of this entry.
func (e *Entry) WeekTotal() int {
	total := 0
	for _, col := range DayColumns {
		if v := e.DayValue(col); v != nil {
			total += *v
		}
	}
	return total
}
