package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindUserByPhone(t *testing.T) {
	db, _ := newTestDB(t)
	seedUser(t, db, "Alice", "+15551234567")

	u, err := FindUserByPhone(db, "+15551234567")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Alice", u.Name)

	u, err = FindUserByPhone(db, "+15550000000")
	require.NoError(t, err, "an unenrolled number is not an error")
	assert.Nil(t, u)
}

func TestOptOutAndRemindFlags(t *testing.T) {
	db, w := newTestDB(t)
	user := seedUser(t, db, "Alice", "+15551234567")

	require.NoError(t, SetOptedOut(w, user.ID, true))
	var u User
	require.NoError(t, db.First(&u, user.ID).Error)
	assert.True(t, u.PhoneOptedOut)

	require.NoError(t, SetOptedOut(w, user.ID, false))
	require.NoError(t, SetRemindOn(w, user.ID, false))
	require.NoError(t, db.First(&u, user.ID).Error)
	assert.False(t, u.PhoneOptedOut)
	assert.False(t, u.RemindOn)
}
