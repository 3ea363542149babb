package controllers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/king44444/walking-step-tracker-app-sub000/models"
	"github.com/king44444/walking-step-tracker-app-sub000/utils"
)

var remindRe = regexp.MustCompile(`(?i)^\s*remind\s+(on|off)\s*$`)

// tryCommand intercepts keyword messages before step parsing. Recognized
// commands are audited as accepted traffic so they count toward the sender's
// window like any other handled message. Returns true when the body was a
// command and a response has been written.
func (c *SmsController) tryCommand(ctx *gin.Context, gateway bool, from, body string) bool {
	trimmed := strings.ToUpper(strings.TrimSpace(body))

	if m := remindRe.FindStringSubmatch(body); m != nil {
		c.handleRemind(ctx, gateway, from, body, strings.EqualFold(m[1], "on"))
		return true
	}

	switch trimmed {
	case "STOP":
		c.handleOptOut(ctx, gateway, from, body, true)
	case "START", "UNSTOP":
		c.handleOptOut(ctx, gateway, from, body, false)
	case "STATUS":
		c.handleStatus(ctx, gateway, from, body)
	case "HELP":
		c.handleHelp(ctx, gateway, from, body)
	default:
		return false
	}
	return true
}

// lookupSender resolves the sending number to an active user, writing the
// unknown_number outcome itself when the lookup fails.
func (c *SmsController) lookupSender(ctx *gin.Context, gateway bool, from, body string) *models.User {
	user, err := models.FindUserByPhone(c.db, from)
	if err != nil {
		utils.Sugar.Errorw("user lookup failed", "error", err)
		utils.SmsError(ctx, gateway, http.StatusInternalServerError, "error", "something went wrong, try again")
		return nil
	}
	if user == nil || !user.Active {
		c.audit(auditRec{from: from, body: body, status: models.StatusUnknownNumber})
		utils.SmsError(ctx, gateway, http.StatusNotFound, models.StatusUnknownNumber,
			"I don't recognize this number. Ask the group organizer to add you.")
		return nil
	}
	return user
}

func (c *SmsController) handleOptOut(ctx *gin.Context, gateway bool, from, body string, optOut bool) {
	user := c.lookupSender(ctx, gateway, from, body)
	if user == nil {
		return
	}
	if err := models.SetOptedOut(c.writer, user.ID, optOut); err != nil {
		utils.Sugar.Errorw("opt-out update failed", "user", user.Name, "error", err)
		utils.SmsError(ctx, gateway, http.StatusInternalServerError, "error", "something went wrong, try again")
		return
	}
	c.audit(auditRec{from: from, body: body, status: models.StatusOK})
	if optOut {
		utils.SmsOK(ctx, gateway, "You're opted out of messages from us. Text START to resume.", nil)
	} else {
		utils.SmsOK(ctx, gateway, fmt.Sprintf("Welcome back, %s! You'll get messages again.", user.Name), nil)
	}
}

func (c *SmsController) handleRemind(ctx *gin.Context, gateway bool, from, body string, on bool) {
	user := c.lookupSender(ctx, gateway, from, body)
	if user == nil {
		return
	}
	if err := models.SetRemindOn(c.writer, user.ID, on); err != nil {
		utils.Sugar.Errorw("remind update failed", "user", user.Name, "error", err)
		utils.SmsError(ctx, gateway, http.StatusInternalServerError, "error", "something went wrong, try again")
		return
	}
	c.audit(auditRec{from: from, body: body, status: models.StatusOK})
	if on {
		utils.SmsOK(ctx, gateway, "Daily reminders are on.", nil)
	} else {
		utils.SmsOK(ctx, gateway, "Daily reminders are off. Text REMIND ON to turn them back on.", nil)
	}
}

func (c *SmsController) handleStatus(ctx *gin.Context, gateway bool, from, body string) {
	user := c.lookupSender(ctx, gateway, from, body)
	if user == nil {
		return
	}

	week, err := models.ResolveActiveWeek(c.db)
	if err != nil {
		c.audit(auditRec{from: from, body: body, status: models.StatusOK})
		utils.SmsOK(ctx, gateway, fmt.Sprintf("Hi %s! There's no active week right now.", user.Name), nil)
		return
	}

	total := 0
	if entry, err := models.EntryFor(c.db, week, user.ID); err == nil && entry != nil {
		total = entry.WeekTotal()
	}
	c.audit(auditRec{from: from, body: body, status: models.StatusOK, resolvedWeek: &week})
	utils.SmsOK(ctx, gateway,
		fmt.Sprintf("Hi %s! You have %s steps recorded for the week of %s.", user.Name, formatSteps(total), week),
		gin.H{"week": week, "total": total})
}

func (c *SmsController) handleHelp(ctx *gin.Context, gateway bool, from, body string) {
	c.audit(auditRec{from: from, body: body, status: models.StatusOK})
	utils.SmsOK(ctx, gateway,
		"Text your step count, like \"8500\" or \"Tue 8500\". Before noon it counts for yesterday. "+
			"Other commands: STATUS, REMIND ON/OFF, STOP.", nil)
}
