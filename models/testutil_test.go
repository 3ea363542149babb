package models

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a throwaway SQLite file with the full schema migrated and a
// running writer, both torn down with the test.
func newTestDB(t *testing.T) (*gorm.DB, *Writer) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.sqlite")
	db, err := gorm.Open(sqlite.Open("file:"+path+"?_foreign_keys=ON"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&User{}, &Week{}, &Entry{}, &SmsAudit{}, &SmsOutboundAudit{}, &AwardCrossing{}, &Setting{},
	))

	w := NewWriter(db)
	t.Cleanup(w.Close)
	return db, w
}

// seedUser inserts an active participant.
func seedUser(t *testing.T, db *gorm.DB, name, phone string) *User {
	t.Helper()
	u := User{Name: name, PhoneE164: phone, Active: true, RemindOn: true}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

// seedWeek inserts a week row keyed by its Monday date.
func seedWeek(t *testing.T, db *gorm.DB, monday string, finalized bool) {
	t.Helper()
	require.NoError(t, db.Create(&Week{Week: monday, Finalized: finalized}).Error)
}

func intp(v int) *int { return &v }
