package models

import (
	"time"

	"gorm.io/gorm"
)

// SmsOutboundAudit records every outbound delivery attempt that reached the
// sender, successful or not. Opt-out refusals are logged, not audited.
type SmsOutboundAudit struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ToNumber  string    `gorm:"index" json:"to_number"`
	Body      string    `json:"body"`
	HTTPCode  *int      `json:"http_code,omitempty"`
	Sid       *string   `json:"sid,omitempty"`
	Error     *string   `json:"error,omitempty"`
}

// InsertOutboundAudit appends one outbound audit row through the writer.
func InsertOutboundAudit(w *Writer, rec *SmsOutboundAudit) error {
	return w.Do(func(tx *gorm.DB) error {
		return tx.Create(rec).Error
	})
}
