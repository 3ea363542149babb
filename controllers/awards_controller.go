package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/king44444/walking-step-tracker-app-sub000/config"
	"github.com/king44444/walking-step-tracker-app-sub000/models"
	"github.com/king44444/walking-step-tracker-app-sub000/utils"
)

// AwardsController serves milestone state for the web UI.
type AwardsController struct {
	db     *gorm.DB
	writer *models.Writer
	cfg    config.AppConfig
}

func NewAwardsController(db *gorm.DB, w *models.Writer, cfg config.AppConfig) *AwardsController {
	return &AwardsController{db: db, writer: w, cfg: cfg}
}

type awardItem struct {
	Threshold int     `json:"threshold"`
	Label     string  `json:"label"`
	Earned    bool    `json:"earned"`
	AwardedAt *string `json:"awarded_at,omitempty"`
	ImageURL  *string `json:"image_url,omitempty"`
}

// UserAwards returns both milestone categories for one participant, every
// configured threshold listed whether earned or not.
func (a *AwardsController) UserAwards(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid user id")
		return
	}

	var user models.User
	if err := a.db.First(&user, uint(id)).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}

	lifetime, err := a.sectionFor(user.ID, models.AwardLifetimeSteps,
		models.ThresholdsFromSetting(a.db, models.SettingLifetimeSteps, a.cfg.LifetimeStepThresholds))
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to compute lifetime milestones")
		return
	}
	attendance, err := a.sectionFor(user.ID, models.AwardAttendanceDays,
		models.ThresholdsFromSetting(a.db, models.SettingAttendanceDays, a.cfg.AttendanceDayThresholds))
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to compute attendance milestones")
		return
	}

	utils.Success(ctx, gin.H{
		"user":            gin.H{"id": user.ID, "name": user.Name},
		"lifetime_steps":  lifetime,
		"attendance_days": attendance,
	})
}

func (a *AwardsController) sectionFor(userID uint, kind models.AwardKind, thresholds []int) ([]awardItem, error) {
	crossed, err := models.CrossingDates(a.db, a.writer, userID, kind, thresholds)
	if err != nil {
		return nil, err
	}

	items := make([]awardItem, 0, len(thresholds))
	for _, t := range thresholds {
		item := awardItem{Threshold: t, Label: models.AwardLabel(kind, t)}
		if date, ok := crossed[t]; ok {
			d := date
			item.Earned = true
			item.AwardedAt = &d
			if a.cfg.AwardImageGenerationOn {
				url := "/awards/" + utils.AwardImageName(userID, models.AwardKeyFor(kind, t))
				item.ImageURL = &url
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// ClearCache drops every cached crossing so the next read recomputes from the
// ledger. Admin only; used after retroactive data edits.
func (a *AwardsController) ClearCache(ctx *gin.Context) {
	if err := models.ClearAwardCache(a.writer); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to clear award cache")
		return
	}
	utils.Success(ctx, gin.H{"cleared": true})
}
