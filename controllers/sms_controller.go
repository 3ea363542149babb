package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/king44444/walking-step-tracker-app-sub000/config"
	"github.com/king44444/walking-step-tracker-app-sub000/models"
	"github.com/king44444/walking-step-tracker-app-sub000/utils"
)

// SmsController handles the inbound message pipeline: authentication,
// throttling, parsing, temporal resolution, and the ledger write.
type SmsController struct {
	db       *gorm.DB
	writer   *models.Writer
	cfg      config.AppConfig
	notifier *utils.Notifier
	loc      *time.Location

	// now is injectable so the noon rule can be tested at fixed clock times.
	now func() time.Time
}

// NewSmsController wires the pipeline dependencies.
func NewSmsController(db *gorm.DB, w *models.Writer, cfg config.AppConfig, notifier *utils.Notifier) *SmsController {
	loc := utils.LoadLocation(cfg.Timezone)
	return &SmsController{
		db:       db,
		writer:   w,
		cfg:      cfg,
		notifier: notifier,
		loc:      loc,
		now:      func() time.Time { return time.Now().In(loc) },
	}
}

// auditRec collects the fields written to the inbound audit row. Every
// request that reaches the pipeline produces exactly one row.
type auditRec struct {
	from         string
	body         string
	status       string
	parsedDay    *string
	parsedSteps  *int
	resolvedWeek *string
	resolvedDay  *string
}

func (c *SmsController) audit(rec auditRec) {
	row := models.SmsAudit{
		FromNumber:   rec.from,
		RawBody:      rec.body,
		Status:       rec.status,
		ParsedDay:    rec.parsedDay,
		ParsedSteps:  rec.parsedSteps,
		ResolvedWeek: rec.resolvedWeek,
		ResolvedDay:  rec.resolvedDay,
	}
	if err := models.InsertAudit(c.writer, &row); err != nil {
		utils.Sugar.Errorw("sms audit insert failed", "status", rec.status, "error", err)
	}
}

// Handle processes one inbound message POST.
func (c *SmsController) Handle(ctx *gin.Context) {
	if err := ctx.Request.ParseForm(); err != nil {
		utils.SmsError(ctx, false, http.StatusBadRequest, models.StatusBadRequest, "malformed form body")
		return
	}

	claimedSig := ctx.GetHeader(utils.SignatureHeader)
	internal := c.cfg.InternalAPISecret != "" &&
		utils.SecureCompare(ctx.GetHeader(utils.InternalSecretHeader), c.cfg.InternalAPISecret)
	// Gateway traffic gets TwiML envelopes. A signature header marks the
	// gateway unless the caller is internal; the format override (query or
	// form) requests TwiML explicitly. ctx.Request.Form carries both after
	// ParseForm.
	gateway := (claimedSig != "" && !internal) || ctx.Request.Form.Get("format") == "twiml"

	from := utils.ToE164(ctx.PostForm("From"))
	body := ctx.PostForm("Body")

	if !internal {
		if status, ok := c.verifySignature(ctx, claimedSig); !ok {
			c.audit(auditRec{from: from, body: body, status: status})
			code := http.StatusForbidden
			if status == models.StatusMissingAuth {
				// a missing verification secret is our misconfiguration
				code = http.StatusInternalServerError
			}
			// auth failures never get a gateway reply envelope: a forged
			// signature must not receive a well-formed acknowledgment
			utils.SmsError(ctx, false, code, status, "request not authenticated")
			return
		}
	}

	if from == "" || strings.TrimSpace(body) == "" {
		c.audit(auditRec{from: from, body: body, status: models.StatusBadRequest})
		utils.SmsError(ctx, gateway, http.StatusBadRequest, models.StatusBadRequest, "From and Body are required")
		return
	}

	now := c.now().In(c.loc)

	// Per-sender window against the audit log: one accepted message per
	// window. Only rows that landed as 'ok' count.
	window := models.GetSettingInt(c.db, models.SettingRateWindowSec, c.cfg.RateLimitWindowSeconds)
	if window > 0 {
		recent, err := models.HasRecentOK(c.db, from, now.Add(-time.Duration(window)*time.Second))
		if err != nil {
			utils.Sugar.Errorw("rate window lookup failed", "error", err)
		} else if recent {
			c.audit(auditRec{from: from, body: body, status: models.StatusRateLimited})
			utils.SmsError(ctx, gateway, http.StatusTooManyRequests, models.StatusRateLimited,
				fmt.Sprintf("Easy there! Wait %d seconds between messages.", window))
			return
		}
	}

	if handled := c.tryCommand(ctx, gateway, from, body); handled {
		return
	}

	norm := utils.NormalizeThousands(body)
	switch runs := utils.CountNumberRuns(norm); {
	case runs == 0:
		c.audit(auditRec{from: from, body: body, status: models.StatusNoSteps})
		utils.SmsError(ctx, gateway, http.StatusBadRequest, models.StatusNoSteps,
			"I didn't find a step count in that message. Try something like \"8500\" or \"Tue 8500\".")
		return
	case runs > 1:
		c.audit(auditRec{from: from, body: body, status: models.StatusTooManyNumbers})
		utils.SmsError(ctx, gateway, http.StatusBadRequest, models.StatusTooManyNumbers,
			"I found more than one number in that message. Send one count, like \"8500\" or \"Tue 8500\".")
		return
	}

	dayOverride, steps, ok := utils.ParseSteps(norm)
	if !ok {
		c.audit(auditRec{from: from, body: body, status: models.StatusNoSteps})
		utils.SmsError(ctx, gateway, http.StatusBadRequest, models.StatusNoSteps,
			"I couldn't read that. Try something like \"8500\" or \"Tue 8500\".")
		return
	}
	if !utils.StepsInBounds(steps) {
		c.audit(auditRec{from: from, body: body, status: models.StatusInvalidSteps, parsedSteps: &steps})
		utils.SmsError(ctx, gateway, http.StatusBadRequest, models.StatusInvalidSteps,
			fmt.Sprintf("That step count is out of range (0 to %d).", utils.MaxSteps))
		return
	}

	var parsedDay *string
	if dayOverride != "" {
		d := dayOverride
		parsedDay = &d
	}

	user, err := models.FindUserByPhone(c.db, from)
	if err != nil {
		utils.Sugar.Errorw("user lookup failed", "error", err)
		utils.SmsError(ctx, gateway, http.StatusInternalServerError, "error", "something went wrong, try again")
		return
	}
	if user == nil || !user.Active {
		c.audit(auditRec{from: from, body: body, status: models.StatusUnknownNumber, parsedDay: parsedDay, parsedSteps: &steps})
		utils.SmsError(ctx, gateway, http.StatusNotFound, models.StatusUnknownNumber,
			"I don't recognize this number. Ask the group organizer to add you.")
		return
	}

	dayCol, dayOK := utils.ResolveTargetDay(now, dayOverride)
	if !dayOK {
		c.audit(auditRec{from: from, body: body, status: models.StatusBadDay, parsedDay: parsedDay, parsedSteps: &steps})
		utils.SmsError(ctx, gateway, http.StatusBadRequest, models.StatusBadDay,
			fmt.Sprintf("I don't know the day %q. Use Mon through Sat.", dayOverride))
		return
	}

	week, err := models.ResolveActiveWeek(c.db)
	if err != nil {
		if errors.Is(err, models.ErrNoActiveWeek) {
			c.audit(auditRec{from: from, body: body, status: models.StatusNoActiveWeek, parsedDay: parsedDay, parsedSteps: &steps, resolvedDay: &dayCol})
			utils.SmsError(ctx, gateway, http.StatusNotFound, models.StatusNoActiveWeek,
				"There's no active week right now. Check back when the next one starts.")
			return
		}
		utils.Sugar.Errorw("active week lookup failed", "error", err)
		utils.SmsError(ctx, gateway, http.StatusInternalServerError, "error", "something went wrong, try again")
		return
	}

	if err := models.UpsertSteps(c.writer, week, user, dayCol, &steps, now); err != nil {
		utils.Sugar.Errorw("ledger write failed", "week", week, "user", user.Name, "error", err)
		utils.SmsError(ctx, gateway, http.StatusInternalServerError, "error", "something went wrong, try again")
		return
	}

	c.audit(auditRec{
		from: from, body: body, status: models.StatusOK,
		parsedDay: parsedDay, parsedSteps: &steps,
		resolvedWeek: &week, resolvedDay: &dayCol,
	})

	go c.runAwardSideEffects(user)

	label := utils.DayLabel(now, dayCol)
	utils.SmsOK(ctx, gateway,
		fmt.Sprintf("Recorded %s for %s on %s.", formatSteps(steps), user.Name, label),
		gin.H{"week": week, "day": dayCol, "steps": steps})
}

// verifySignature applies the gateway authentication policy. Returns the
// failure status and false when the request must be rejected.
func (c *SmsController) verifySignature(ctx *gin.Context, claimedSig string) (string, bool) {
	if utils.ShouldSkipVerification(c.cfg.TwilioTestMode, c.cfg.TwilioTrustedIPs, ctx.ClientIP(), claimedSig) {
		return "", true
	}

	secrets := make([]string, 0, 2)
	if c.cfg.TwilioAuthToken != "" {
		secrets = append(secrets, c.cfg.TwilioAuthToken)
	}
	if c.cfg.TwilioAuthTokenPrev != "" {
		secrets = append(secrets, c.cfg.TwilioAuthTokenPrev)
	}
	if len(secrets) == 0 {
		// No secret to verify against: fail closed rather than letting
		// unauthenticated traffic through.
		return models.StatusMissingAuth, false
	}

	reqURL := utils.BuildGatewayURL(ctx.Request)
	if !utils.VerifyGatewaySignature(reqURL, ctx.Request.PostForm, claimedSig, secrets) {
		return models.StatusBadSignature, false
	}
	return "", true
}

// runAwardSideEffects recomputes milestone crossings after an accepted report
// and, for newly crossed thresholds, generates the badge image and notifies
// the user. Everything here is best effort; failures are logged and never
// affect the already-sent reply.
func (c *SmsController) runAwardSideEffects(user *models.User) {
	defer func() {
		if r := recover(); r != nil {
			utils.Sugar.Errorw("award side effects panicked", "user", user.Name, "panic", r)
		}
	}()

	if models.GetSetting(c.db, models.SettingAwardsEnabled, "1") == "0" {
		return
	}

	var prior []models.AwardCrossing
	if err := c.db.Where("user_id = ?", user.ID).Find(&prior).Error; err != nil {
		utils.Sugar.Errorw("prior crossings lookup failed", "error", err)
		return
	}
	known := make(map[string]bool, len(prior))
	for _, p := range prior {
		known[p.AwardKey] = true
	}

	kinds := []struct {
		kind       models.AwardKind
		thresholds []int
	}{
		{models.AwardLifetimeSteps, models.ThresholdsFromSetting(c.db, models.SettingLifetimeSteps, c.cfg.LifetimeStepThresholds)},
		{models.AwardAttendanceDays, models.ThresholdsFromSetting(c.db, models.SettingAttendanceDays, c.cfg.AttendanceDayThresholds)},
	}

	for _, k := range kinds {
		crossed, err := models.CrossingDates(c.db, c.writer, user.ID, k.kind, k.thresholds)
		if err != nil {
			utils.Sugar.Errorw("crossing computation failed", "kind", k.kind, "error", err)
			continue
		}
		for threshold, date := range crossed {
			key := models.AwardKeyFor(k.kind, threshold)
			if known[key] {
				continue
			}
			label := models.AwardLabel(k.kind, threshold)
			utils.Sugar.Infow("milestone crossed", "user", user.Name, "award", key, "date", date)

			if c.cfg.AwardImageGenerationOn {
				if _, err := utils.GenerateAwardImage(c.cfg.AwardsDir, user.ID, key, label, user.Name); err != nil {
					utils.Sugar.Warnw("award image generation skipped", "award", key, "error", err)
				}
			}
			if c.notifier != nil {
				msg := fmt.Sprintf("Congratulations %s! You just earned %s.", user.Name, label)
				if err := c.notifier.NotifyUser(user, msg); err != nil {
					utils.Sugar.Warnw("award notification failed", "award", key, "error", err)
				}
			}
		}
	}
}

func formatSteps(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
