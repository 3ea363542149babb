package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsRoundTrip(t *testing.T) {
	db, w := newTestDB(t)

	assert.Equal(t, 60, GetSettingInt(db, SettingRateWindowSec, 60), "default until set")

	require.NoError(t, SetSetting(w, SettingRateWindowSec, "90"))
	assert.Equal(t, 90, GetSettingInt(db, SettingRateWindowSec, 60))

	// overwrite, not duplicate
	require.NoError(t, SetSetting(w, SettingRateWindowSec, "30"))
	assert.Equal(t, 30, GetSettingInt(db, SettingRateWindowSec, 60))

	var count int64
	require.NoError(t, db.Model(&Setting{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGetSettingIntBadValueFallsBack(t *testing.T) {
	db, w := newTestDB(t)
	require.NoError(t, SetSetting(w, SettingRateWindowSec, "not-a-number"))
	assert.Equal(t, 60, GetSettingInt(db, SettingRateWindowSec, 60))
}

func TestThresholdsFromSetting(t *testing.T) {
	db, w := newTestDB(t)
	def := []int{100000, 250000}

	assert.Equal(t, def, ThresholdsFromSetting(db, SettingLifetimeSteps, def))

	require.NoError(t, SetSetting(w, SettingLifetimeSteps, "500000, 100000, 100000, -5"))
	got := ThresholdsFromSetting(db, SettingLifetimeSteps, def)
	assert.Equal(t, []int{100000, 500000}, got, "sorted ascending, deduped, non-positive dropped")
}
