package models

import (
	"time"

	"gorm.io/gorm"
)

// Inbound status taxonomy. Every inbound attempt is audited with exactly one
// of these; external monitoring depends on the set staying fixed.
const (
	StatusOK             = "ok"
	StatusBadSignature   = "bad_signature"
	StatusMissingAuth    = "missing_auth_token"
	StatusBadRequest     = "bad_request"
	StatusRateLimited    = "rate_limited"
	StatusTooManyNumbers = "too_many_numbers"
	StatusNoSteps        = "no_steps"
	StatusInvalidSteps   = "invalid_steps"
	StatusUnknownNumber  = "unknown_number"
	StatusBadDay         = "bad_day"
	StatusNoActiveWeek   = "no_active_week"
)

// SmsAudit is the append-only record of every inbound attempt. Rows are never
// updated or deleted here; the rate limiter reads them back.
type SmsAudit struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `gorm:"index:idx_sms_audit_from_created,priority:2" json:"created_at"`
	FromNumber   string    `gorm:"index:idx_sms_audit_from_created,priority:1" json:"from_number"`
	RawBody      string    `json:"raw_body"`
	ParsedDay    *string   `json:"parsed_day,omitempty"`
	ParsedSteps  *int      `json:"parsed_steps,omitempty"`
	ResolvedWeek *string   `json:"resolved_week,omitempty"`
	ResolvedDay  *string   `json:"resolved_day,omitempty"`
	Status       string    `gorm:"index;not null" json:"status"`
}

// InsertAudit appends one audit row through the writer.
func InsertAudit(w *Writer, rec *SmsAudit) error {
	return w.Do(func(tx *gorm.DB) error {
		return tx.Create(rec).Error
	})
}

// HasRecentOK reports whether the sender already has an ok row at or after
// the cutoff. Only successful reports arm the window; rejected attempts do
// not push it out.
func HasRecentOK(db *gorm.DB, from string, cutoff time.Time) (bool, error) {
	var count int64
	err := db.Model(&SmsAudit{}).
		Where("from_number = ? AND status = ? AND created_at >= ?", from, StatusOK, cutoff).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

// RecentAudits returns the newest audit rows for the admin surface.
func RecentAudits(db *gorm.DB, limit int) ([]SmsAudit, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []SmsAudit
	err := db.Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
