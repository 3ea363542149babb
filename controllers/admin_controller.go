package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/king44444/walking-step-tracker-app-sub000/config"
	"github.com/king44444/walking-step-tracker-app-sub000/models"
	"github.com/king44444/walking-step-tracker-app-sub000/utils"
)

const adminTokenTTL = 12 * time.Hour

// AdminController handles the operator surface: login, audit inspection,
// runtime settings, and test sends.
type AdminController struct {
	db       *gorm.DB
	writer   *models.Writer
	cfg      config.AppConfig
	notifier *utils.Notifier
}

func NewAdminController(db *gorm.DB, w *models.Writer, cfg config.AppConfig, notifier *utils.Notifier) *AdminController {
	return &AdminController{db: db, writer: w, cfg: cfg, notifier: notifier}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks the configured admin credential and issues a JWT.
func (a *AdminController) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "username and password are required")
		return
	}

	if a.cfg.AdminUsername == "" || a.cfg.AdminPasswordHash == "" {
		utils.Error(ctx, http.StatusForbidden, 40310, "admin access is not configured")
		return
	}
	if req.Username != a.cfg.AdminUsername || !utils.CheckPassword(a.cfg.AdminPasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "invalid credentials")
		return
	}

	token, err := utils.GenerateToken(req.Username, a.cfg.JWTSecret, adminTokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to issue token")
		return
	}
	utils.Success(ctx, gin.H{"token": token, "expires_in": int(adminTokenTTL.Seconds())})
}

// Logout revokes the presented token for the rest of its lifetime.
func (a *AdminController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 {
		token := strings.TrimSpace(parts[1])
		if claims, err := utils.ParseToken(token, a.cfg.JWTSecret); err == nil && claims.ExpiresAt != nil {
			utils.BlacklistToken(token, claims.ExpiresAt.Time)
		}
	}
	utils.Success(ctx, gin.H{"logged_out": true})
}

// InboundAudit returns recent inbound audit rows, newest first.
func (a *AdminController) InboundAudit(ctx *gin.Context) {
	limit := 100
	if v := strings.TrimSpace(ctx.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	rows, err := models.RecentAudits(a.db, limit)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to load audit rows")
		return
	}
	utils.Success(ctx, gin.H{"audits": rows})
}

type testSendRequest struct {
	To   string `json:"to" binding:"required"`
	Body string `json:"body" binding:"required"`
}

// TestSend delivers an arbitrary message through the configured sender. The
// outcome lands in the outbound audit table either way.
func (a *AdminController) TestSend(ctx *gin.Context) {
	var req testSendRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "to and body are required")
		return
	}
	to := utils.ToE164(req.To)
	if to == "" {
		utils.Error(ctx, http.StatusBadRequest, 40012, "to must be a dialable number")
		return
	}
	if err := a.notifier.NotifyNumber(to, req.Body); err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50210, "send failed: "+err.Error())
		return
	}
	utils.Success(ctx, gin.H{"sent": true, "to": to})
}

// GetSettings returns the runtime-tunable settings with effective values.
func (a *AdminController) GetSettings(ctx *gin.Context) {
	utils.Success(ctx, gin.H{
		"settings": gin.H{
			models.SettingRateWindowSec: models.GetSettingInt(a.db, models.SettingRateWindowSec, a.cfg.RateLimitWindowSeconds),
			models.SettingLifetimeSteps: models.ThresholdsFromSetting(a.db, models.SettingLifetimeSteps, a.cfg.LifetimeStepThresholds),
			models.SettingAttendanceDays: models.ThresholdsFromSetting(a.db, models.SettingAttendanceDays, a.cfg.AttendanceDayThresholds),
			models.SettingAwardsEnabled: models.GetSetting(a.db, models.SettingAwardsEnabled, "1"),
		},
	})
}

type updateSettingRequest struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value" binding:"required"`
}

var settableKeys = map[string]bool{
	models.SettingRateWindowSec:  true,
	models.SettingLifetimeSteps:  true,
	models.SettingAttendanceDays: true,
	models.SettingAwardsEnabled:  true,
}

// UpdateSetting writes one runtime setting.
func (a *AdminController) UpdateSetting(ctx *gin.Context) {
	var req updateSettingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40013, "key and value are required")
		return
	}
	if !settableKeys[req.Key] {
		utils.Error(ctx, http.StatusBadRequest, 40014, "unknown setting key")
		return
	}
	if err := models.SetSetting(a.writer, req.Key, req.Value); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to store setting")
		return
	}
	utils.Success(ctx, gin.H{"key": req.Key, "value": req.Value})
}
