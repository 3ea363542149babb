package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/king44444/walking-step-tracker-app-sub000/config"
	"github.com/king44444/walking-step-tracker-app-sub000/models"
	"github.com/king44444/walking-step-tracker-app-sub000/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.Logger = zap.NewNop()
	utils.Sugar = utils.Logger.Sugar()
}

type pipeline struct {
	engine *gin.Engine
	ctl    *SmsController
	db     *gorm.DB
	writer *models.Writer
}

func newPipeline(t *testing.T, cfg config.AppConfig, now time.Time) *pipeline {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.sqlite")
	db, err := gorm.Open(sqlite.Open("file:"+path+"?_foreign_keys=ON"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Week{}, &models.Entry{}, &models.SmsAudit{},
		&models.SmsOutboundAudit{}, &models.AwardCrossing{}, &models.Setting{},
	))

	w := models.NewWriter(db)
	t.Cleanup(w.Close)

	ctl := NewSmsController(db, w, cfg, nil)
	ctl.now = func() time.Time { return now }

	engine := gin.New()
	engine.POST("/api/sms", ctl.Handle)
	return &pipeline{engine: engine, ctl: ctl, db: db, writer: w}
}

func testConfig() config.AppConfig {
	return config.AppConfig{
		Timezone:               "UTC",
		TwilioTestMode:         true,
		RateLimitWindowSeconds: 60,
	}
}

func (p *pipeline) seedUser(t *testing.T, name, phone string) *models.User {
	t.Helper()
	u := models.User{Name: name, PhoneE164: phone, Active: true, RemindOn: true}
	require.NoError(t, p.db.Create(&u).Error)
	return &u
}

func (p *pipeline) seedWeek(t *testing.T, monday string) {
	t.Helper()
	require.NoError(t, p.db.Create(&models.Week{Week: monday}).Error)
}

func (p *pipeline) post(t *testing.T, form url.Values, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	return p.postURL(t, "http://walk.example.com/api/sms", form, headers)
}

func (p *pipeline) postURL(t *testing.T, rawURL string, form url.Values, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	p.engine.ServeHTTP(rec, req)
	return rec
}

func (p *pipeline) lastAudit(t *testing.T) models.SmsAudit {
	t.Helper()
	var row models.SmsAudit
	require.NoError(t, p.db.Order("id DESC").First(&row).Error)
	return row
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestInboundReportAfternoon(t *testing.T) {
	// Tuesday 14:00: the noon rule has passed, the report is for today.
	now := time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)
	p := newPipeline(t, testConfig(), now)
	user := p.seedUser(t, "Alice", "+15551234567")
	p.seedWeek(t, "2026-03-02")

	rec := p.post(t, url.Values{"From": {"+15551234567"}, "Body": {"8500"}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeJSON(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Contains(t, body["message"], "8,500")
	assert.Contains(t, body["message"], "Alice")
	assert.Contains(t, body["message"], "today")

	e, err := models.EntryFor(p.db, "2026-03-02", user.ID)
	require.NoError(t, err)
	require.NotNil(t, e.DayValue("tuesday"))
	assert.Equal(t, 8500, *e.DayValue("tuesday"))

	audit := p.lastAudit(t)
	assert.Equal(t, models.StatusOK, audit.Status)
	require.NotNil(t, audit.ResolvedDay)
	assert.Equal(t, "tuesday", *audit.ResolvedDay)
}

func TestInboundReportMorningNoonRule(t *testing.T) {
	// Tuesday 09:00: before noon, the report counts for Monday.
	now := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	p := newPipeline(t, testConfig(), now)
	user := p.seedUser(t, "Alice", "+15551234567")
	p.seedWeek(t, "2026-03-02")

	rec := p.post(t, url.Values{"From": {"+15551234567"}, "Body": {"8500"}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeJSON(t, rec)["message"], "yesterday")

	e, err := models.EntryFor(p.db, "2026-03-02", user.ID)
	require.NoError(t, err)
	require.NotNil(t, e.DayValue("monday"))
	assert.Equal(t, 8500, *e.DayValue("monday"))
	assert.Nil(t, e.DayValue("tuesday"))
}

func TestInboundReportDayOverride(t *testing.T) {
	now := time.Date(2026, 3, 5, 15, 0, 0, 0, time.UTC) // Thursday afternoon
	p := newPipeline(t, testConfig(), now)
	user := p.seedUser(t, "Alice", "+15551234567")
	p.seedWeek(t, "2026-03-02")

	rec := p.post(t, url.Values{"From": {"+15551234567"}, "Body": {"Tue 10,000"}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	e, err := models.EntryFor(p.db, "2026-03-02", user.ID)
	require.NoError(t, err)
	require.NotNil(t, e.DayValue("tuesday"))
	assert.Equal(t, 10000, *e.DayValue("tuesday"))
}

func TestInboundRateLimitedSecondMessage(t *testing.T) {
	// audit timestamps come from the wall clock, so the injected pipeline
	// clock must be anchored to it for window math to line up
	now := time.Now().UTC()
	p := newPipeline(t, testConfig(), now)
	p.seedUser(t, "Alice", "+15551234567")
	p.seedWeek(t, "2026-08-24")

	rec := p.post(t, url.Values{"From": {"+15551234567"}, "Body": {"8500"}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// immediate follow-up from the same number is throttled
	p.ctl.now = func() time.Time { return now.Add(5 * time.Second) }
	rec = p.post(t, url.Values{"From": {"+15551234567"}, "Body": {"9000"}}, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, models.StatusRateLimited, decodeJSON(t, rec)["error"])
	assert.Equal(t, models.StatusRateLimited, p.lastAudit(t).Status)

	// a different sender is unaffected
	p.seedUser(t, "Bob", "+15559876543")
	rec = p.post(t, url.Values{"From": {"+15559876543"}, "Body": {"7000"}}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInboundRejections(t *testing.T) {
	now := time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		from       string
		body       string
		wantStatus string
		wantCode   int
	}{
		{"unknown number", "+15550000000", "8500", models.StatusUnknownNumber, http.StatusNotFound},
		{"no digits", "+15551234567", "walked a lot", models.StatusNoSteps, http.StatusBadRequest},
		{"two numbers", "+15551234567", "3 4", models.StatusTooManyNumbers, http.StatusBadRequest},
		{"out of range", "+15551234567", "999999", models.StatusInvalidSteps, http.StatusBadRequest},
		{"sunday override", "+15551234567", "sun 8500", models.StatusBadDay, http.StatusBadRequest},
		{"unknown day word", "+15551234567", "8500 blursday", models.StatusBadDay, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(t, testConfig(), now)
			p.seedUser(t, "Alice", "+15551234567")
			p.seedWeek(t, "2026-03-02")

			rec := p.post(t, url.Values{"From": {tt.from}, "Body": {tt.body}}, nil)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantStatus, decodeJSON(t, rec)["error"])
			assert.Equal(t, tt.wantStatus, p.lastAudit(t).Status)
		})
	}
}

func TestInboundNoActiveWeek(t *testing.T) {
	now := time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)
	p := newPipeline(t, testConfig(), now)
	p.seedUser(t, "Alice", "+15551234567")
	// only a finalized week exists
	require.NoError(t, p.db.Create(&models.Week{Week: "2026-02-23", Finalized: true}).Error)

	rec := p.post(t, url.Values{"From": {"+15551234567"}, "Body": {"8500"}}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, models.StatusNoActiveWeek, p.lastAudit(t).Status)
}

func TestInboundThousandsSeparator(t *testing.T) {
	now := time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)
	p := newPipeline(t, testConfig(), now)
	user := p.seedUser(t, "Alice", "+15551234567")
	p.seedWeek(t, "2026-03-02")

	rec := p.post(t, url.Values{"From": {"+15551234567"}, "Body": {"12,345"}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	e, err := models.EntryFor(p.db, "2026-03-02", user.ID)
	require.NoError(t, err)
	assert.Equal(t, 12345, *e.DayValue("tuesday"))
}

func TestSignatureVerification(t *testing.T) {
	cfg := testConfig()
	cfg.TwilioTestMode = false
	cfg.TwilioAuthToken = "current-secret"

	now := time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)
	form := url.Values{"From": {"+15551234567"}, "Body": {"8500"}}
	reqURL := "http://walk.example.com/api/sms"

	t.Run("valid signature accepted", func(t *testing.T) {
		p := newPipeline(t, cfg, now)
		p.seedUser(t, "Alice", "+15551234567")
		p.seedWeek(t, "2026-03-02")

		sig := utils.ComputeGatewaySignature(reqURL, form, "current-secret")
		rec := p.post(t, form, map[string]string{utils.SignatureHeader: sig})
		assert.Equal(t, http.StatusOK, rec.Code)
		// gateway traffic gets a TwiML envelope
		assert.Contains(t, rec.Body.String(), "<Response><Message>")
		assert.Equal(t, models.StatusOK, p.lastAudit(t).Status)
	})

	t.Run("forged signature rejected", func(t *testing.T) {
		p := newPipeline(t, cfg, now)
		p.seedUser(t, "Alice", "+15551234567")
		p.seedWeek(t, "2026-03-02")

		rec := p.post(t, form, map[string]string{utils.SignatureHeader: "bm90IGEgcmVhbCBzaWduYXR1cmU="})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, models.StatusBadSignature, p.lastAudit(t).Status)
	})

	t.Run("rotated secret still verifies", func(t *testing.T) {
		rotated := cfg
		rotated.TwilioAuthToken = "new-secret"
		rotated.TwilioAuthTokenPrev = "current-secret"

		p := newPipeline(t, rotated, now)
		p.seedUser(t, "Alice", "+15551234567")
		p.seedWeek(t, "2026-03-02")

		sig := utils.ComputeGatewaySignature(reqURL, form, "current-secret")
		rec := p.post(t, form, map[string]string{utils.SignatureHeader: sig})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("no secret configured fails closed", func(t *testing.T) {
		bare := testConfig()
		bare.TwilioTestMode = false

		p := newPipeline(t, bare, now)
		p.seedUser(t, "Alice", "+15551234567")
		p.seedWeek(t, "2026-03-02")

		rec := p.post(t, form, map[string]string{utils.SignatureHeader: "anything"})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, models.StatusMissingAuth, p.lastAudit(t).Status)
	})

	t.Run("internal secret bypasses signature", func(t *testing.T) {
		internal := cfg
		internal.InternalAPISecret = "server-to-server"

		p := newPipeline(t, internal, now)
		p.seedUser(t, "Alice", "+15551234567")
		p.seedWeek(t, "2026-03-02")

		rec := p.post(t, form, map[string]string{utils.InternalSecretHeader: "server-to-server"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("internal caller with signature header gets JSON", func(t *testing.T) {
		internal := cfg
		internal.InternalAPISecret = "server-to-server"

		p := newPipeline(t, internal, now)
		p.seedUser(t, "Alice", "+15551234567")
		p.seedWeek(t, "2026-03-02")

		rec := p.post(t, form, map[string]string{
			utils.InternalSecretHeader: "server-to-server",
			utils.SignatureHeader:      "Zm9yd2FyZGVkIGFsb25n",
		})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "<Response>")
		body := decodeJSON(t, rec)
		assert.Contains(t, body["message"], "Recorded")
	})
}

func TestFormatOverrideQueryParam(t *testing.T) {
	now := time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)
	p := newPipeline(t, testConfig(), now)
	p.seedUser(t, "Alice", "+15551234567")
	p.seedWeek(t, "2026-03-02")

	form := url.Values{"From": {"+15551234567"}, "Body": {"8500"}}
	rec := p.postURL(t, "http://walk.example.com/api/sms?format=twiml", form, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<Response><Message>")
}

func TestCommands(t *testing.T) {
	now := time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)

	t.Run("stop and start toggle opt-out", func(t *testing.T) {
		now := time.Now().UTC() // wall-clock anchored for the window math
		p := newPipeline(t, testConfig(), now)
		user := p.seedUser(t, "Alice", "+15551234567")

		rec := p.post(t, url.Values{"From": {"+15551234567"}, "Body": {"STOP"}}, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var u models.User
		require.NoError(t, p.db.First(&u, user.ID).Error)
		assert.True(t, u.PhoneOptedOut)

		// commands count as accepted traffic, so move past the window
		p.ctl.now = func() time.Time { return now.Add(2 * time.Minute) }
		rec = p.post(t, url.Values{"From": {"+15551234567"}, "Body": {"start"}}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, p.db.First(&u, user.ID).Error)
		assert.False(t, u.PhoneOptedOut)
	})

	t.Run("remind toggles", func(t *testing.T) {
		p := newPipeline(t, testConfig(), now)
		user := p.seedUser(t, "Alice", "+15551234567")

		rec := p.post(t, url.Values{"From": {"+15551234567"}, "Body": {"remind off"}}, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var u models.User
		require.NoError(t, p.db.First(&u, user.ID).Error)
		assert.False(t, u.RemindOn)
	})

	t.Run("status reports week total", func(t *testing.T) {
		p := newPipeline(t, testConfig(), now)
		user := p.seedUser(t, "Alice", "+15551234567")
		p.seedWeek(t, "2026-03-02")
		require.NoError(t, models.UpsertSteps(p.writer, "2026-03-02", user, "monday", intp(4000), now))
		require.NoError(t, models.UpsertSteps(p.writer, "2026-03-02", user, "tuesday", intp(2500), now))

		rec := p.post(t, url.Values{"From": {"+15551234567"}, "Body": {"STATUS"}}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeJSON(t, rec)
		assert.Contains(t, body["message"], "6,500")
		assert.Equal(t, models.StatusOK, p.lastAudit(t).Status)
	})

	t.Run("command audited as accepted arms the window", func(t *testing.T) {
		now := time.Now().UTC()
		p := newPipeline(t, testConfig(), now)
		p.seedUser(t, "Alice", "+15551234567")
		p.seedWeek(t, "2026-03-02")

		rec := p.post(t, url.Values{"From": {"+15551234567"}, "Body": {"HELP"}}, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		p.ctl.now = func() time.Time { return now.Add(5 * time.Second) }
		rec = p.post(t, url.Values{"From": {"+15551234567"}, "Body": {"8500"}}, nil)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})
}

func TestInboundBadRequest(t *testing.T) {
	now := time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)
	p := newPipeline(t, testConfig(), now)

	rec := p.post(t, url.Values{"Body": {"8500"}}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, models.StatusBadRequest, p.lastAudit(t).Status)

	rec = p.post(t, url.Values{"From": {"+15551234567"}}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func intp(v int) *int { return &v }
