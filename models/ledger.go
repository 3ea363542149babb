package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrBadDayColumn rejects writes to anything but the six ledger columns.
	ErrBadDayColumn = errors.New("bad day column")
	// ErrNegativeSteps rejects negative step counts at the ledger boundary.
	ErrNegativeSteps = errors.New("negative steps")
)

// UpsertSteps writes a single day's step count for (week, user), creating the
// week row and the entry row as needed. The write is idempotent: repeating it
// with the same value leaves one row with that value. First-report stamping
// happens inside the same transaction: the first time a day goes from
// nil/zero to a positive count, the day's stamp is set to now (UTC seconds)
// and is never touched again, however much the value later changes.
func UpsertSteps(w *Writer, week string, user *User, dayCol string, steps *int, now time.Time) error {
	if !IsValidDayColumn(dayCol) {
		return ErrBadDayColumn
	}
	if steps != nil && *steps < 0 {
		return ErrNegativeSteps
	}
	return w.Do(func(tx *gorm.DB) error {
		if err := EnsureWeek(tx, week, ""); err != nil {
			return err
		}

		var e Entry
		err := tx.Where("week = ? AND user_id = ?", week, user.ID).First(&e).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			e = Entry{Week: week, UserID: user.ID, Name: user.Name}
		case err != nil:
			return err
		}

		prev := e.DayValue(dayCol)
		e.SetDayValue(dayCol, steps)
		e.Name = user.Name

		if steps != nil && *steps > 0 && (prev == nil || *prev == 0) && e.ReportedAt(dayCol) == nil {
			ts := now.UTC().Unix()
			e.SetReportedAt(dayCol, &ts)
		}

		if e.ID == 0 {
			return tx.Create(&e).Error
		}
		return tx.Save(&e).Error
	})
}

// EntryFor loads the entry row for (week, user), if any.
func EntryFor(db *gorm.DB, week string, userID uint) (*Entry, error) {
	var e Entry
	if err := db.Where("week = ? AND user_id = ?", week, userID).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// EntriesForWeek loads all entry rows for a week.
func EntriesForWeek(db *gorm.DB, week string) ([]Entry, error) {
	var entries []Entry
	err := db.Where("week = ?", week).Order("name ASC").Find(&entries).Error
	return entries, err
}
