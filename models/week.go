package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Week is one challenge period, keyed by its Monday date as an ISO string.
type Week struct {
	Week        string     `gorm:"primaryKey" json:"week"`
	Label       string     `json:"label"`
	Finalized   bool       `gorm:"not null;default:false" json:"finalized"`
	CreatedAt   time.Time  `json:"created_at"`
	FinalizedAt *time.Time `json:"finalized_at,omitempty"`

	// Deleting a week cascades to its entries; the constraint lands on
	// entries(week) referencing weeks(week).
	Entries []Entry `gorm:"foreignKey:Week;references:Week;constraint:OnDelete:CASCADE" json:"-"`
}

// ErrNoActiveWeek is returned when every week row is finalized or none exist.
var ErrNoActiveWeek = errors.New("no active week")

// ResolveActiveWeek returns the most recent non-finalized week.
func ResolveActiveWeek(db *gorm.DB) (string, error) {
	var wk Week
	err := db.Where("finalized = ?", false).Order("week DESC").First(&wk).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNoActiveWeek
	}
	if err != nil {
		return "", err
	}
	return wk.Week, nil
}

// EnsureWeek inserts the week row if absent. An existing row is left
// untouched, so a label set by the admin surface is never overwritten.
func EnsureWeek(tx *gorm.DB, week, label string) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Week{Week: week, Label: label}).Error
}

// ListWeeks returns all weeks newest first.
func ListWeeks(db *gorm.DB) ([]Week, error) {
	var weeks []Week
	err := db.Order("week DESC").Find(&weeks).Error
	return weeks, err
}
