package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/king44444/walking-step-tracker-app-sub000/models"
	"github.com/king44444/walking-step-tracker-app-sub000/utils"
)

// WeeksController serves week listings and per-week leaderboards.
type WeeksController struct {
	db *gorm.DB
}

func NewWeeksController(db *gorm.DB) *WeeksController {
	return &WeeksController{db: db}
}

// List returns all weeks, newest first, marking the active one.
func (w *WeeksController) List(ctx *gin.Context) {
	weeks, err := models.ListWeeks(w.db)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to list weeks")
		return
	}

	active, _ := models.ResolveActiveWeek(w.db)
	type weekView struct {
		Week      string `json:"week"`
		Label     string `json:"label,omitempty"`
		Finalized bool   `json:"finalized"`
		Active    bool   `json:"active"`
	}
	out := make([]weekView, 0, len(weeks))
	for _, wk := range weeks {
		out = append(out, weekView{
			Week:      wk.Week,
			Label:     wk.Label,
			Finalized: wk.Finalized,
			Active:    wk.Week == active,
		})
	}
	utils.Success(ctx, gin.H{"weeks": out})
}

type firstReport struct {
	Day        string `json:"day"`
	Name       string `json:"name"`
	UserID     uint   `json:"user_id"`
	Steps      int    `json:"steps"`
	ReportedAt int64  `json:"reported_at"`
}

// FirstToReport builds the per-day first-reporter leaderboard for a week from
// the first-write timestamps on the ledger. Days nobody reported are omitted.
func (w *WeeksController) FirstToReport(ctx *gin.Context) {
	week := ctx.Param("week")
	entries, err := models.EntriesForWeek(w.db, week)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to load entries")
		return
	}

	winners := make(map[string]firstReport, len(models.DayColumns))
	for _, e := range entries {
		for _, col := range models.DayColumns {
			ts := e.ReportedAt(col)
			steps := e.DayValue(col)
			if ts == nil || steps == nil || *steps <= 0 {
				continue
			}
			cur, seen := winners[col]
			if !seen || *ts < cur.ReportedAt {
				winners[col] = firstReport{
					Day:        col,
					Name:       e.Name,
					UserID:     e.UserID,
					Steps:      *steps,
					ReportedAt: *ts,
				}
			}
		}
	}

	out := make([]firstReport, 0, len(winners))
	for _, col := range models.DayColumns {
		if fr, ok := winners[col]; ok {
			out = append(out, fr)
		}
	}

	utils.Success(ctx, gin.H{"week": week, "first": out})
}
