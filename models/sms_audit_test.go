package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasRecentOKWindow(t *testing.T) {
	db, w := newTestDB(t)
	from := "+15551234567"

	require.NoError(t, InsertAudit(w, &SmsAudit{FromNumber: from, RawBody: "8500", Status: StatusOK}))

	now := time.Now()
	recent, err := HasRecentOK(db, from, now.Add(-60*time.Second))
	require.NoError(t, err)
	assert.True(t, recent, "an ok row inside the window throttles the sender")

	recent, err = HasRecentOK(db, from, now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, recent, "a cutoff in the future sees nothing")

	recent, err = HasRecentOK(db, "+15559999999", now.Add(-60*time.Second))
	require.NoError(t, err)
	assert.False(t, recent, "the window is per sender")
}

func TestHasRecentOKIgnoresRejectedRows(t *testing.T) {
	db, w := newTestDB(t)
	from := "+15551234567"

	// rejected traffic must not extend the sender's throttle
	for _, status := range []string{StatusBadSignature, StatusNoSteps, StatusRateLimited, StatusUnknownNumber} {
		require.NoError(t, InsertAudit(w, &SmsAudit{FromNumber: from, RawBody: "x", Status: status}))
	}

	recent, err := HasRecentOK(db, from, time.Now().Add(-60*time.Second))
	require.NoError(t, err)
	assert.False(t, recent)
}

func TestRecentAuditsOrderAndLimit(t *testing.T) {
	db, w := newTestDB(t)

	for i, status := range []string{StatusOK, StatusNoSteps, StatusOK} {
		rec := SmsAudit{FromNumber: "+15551234567", RawBody: "b", Status: status}
		require.NoError(t, InsertAudit(w, &rec))
		_ = i
	}

	rows, err := RecentAudits(db, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.GreaterOrEqual(t, rows[0].ID, rows[1].ID, "newest first")
}
