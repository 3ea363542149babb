package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// User is a challenge participant. Rows are owned by the admin surface; the
// inbound pipeline only reads them and flips the opt-out / reminder flags.
type User struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	Name          string `gorm:"uniqueIndex;not null" json:"name"`
	PhoneE164     string `gorm:"uniqueIndex;not null" json:"phone_e164"`
	Active        bool   `gorm:"not null;default:true" json:"active"`
	PhoneOptedOut bool   `gorm:"not null;default:false" json:"phone_opted_out"`
	RemindOn      bool   `gorm:"not null;default:true" json:"remind_on"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FindUserByPhone resolves a normalized E.164 number to an enrolled user.
// An unenrolled number is (nil, nil), not an error.
func FindUserByPhone(db *gorm.DB, e164 string) (*User, error) {
	var u User
	err := db.Where("phone_e164 = ?", e164).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SetOptedOut flips the outbound opt-out flag for a user.
func SetOptedOut(w *Writer, userID uint, optedOut bool) error {
	return w.Do(func(tx *gorm.DB) error {
		return tx.Model(&User{}).Where("id = ?", userID).Update("phone_opted_out", optedOut).Error
	})
}

// SetRemindOn flips the reminder preference for a user.
func SetRemindOn(w *Writer, userID uint, on bool) error {
	return w.Do(func(tx *gorm.DB) error {
		return tx.Model(&User{}).Where("id = ?", userID).Update("remind_on", on).Error
	})
}
