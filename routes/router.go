package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/king44444/walking-step-tracker-app-sub000/config"
	"github.com/king44444/walking-step-tracker-app-sub000/controllers"
	"github.com/king44444/walking-step-tracker-app-sub000/middleware"
	"github.com/king44444/walking-step-tracker-app-sub000/models"
	"github.com/king44444/walking-step-tracker-app-sub000/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, writer *models.Writer, cfg config.AppConfig, notifier *utils.Notifier) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", utils.InternalSecretHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	smsCtl := controllers.NewSmsController(db, writer, cfg, notifier)
	awardsCtl := controllers.NewAwardsController(db, writer, cfg)
	weeksCtl := controllers.NewWeeksController(db)
	adminCtl := controllers.NewAdminController(db, writer, cfg, notifier)

	// Gateway webhook. The IP bucket shields against floods; the per-sender
	// window inside the pipeline does the real throttling.
	r.POST("/api/sms", middleware.RateLimitMiddleware(cfg.RateLimitPerMinute), smsCtl.Handle)

	if cfg.AwardsDir != "" {
		r.Static("/awards", cfg.AwardsDir)
	}

	api := r.Group("/api/v1")
	{
		api.GET("/weeks", weeksCtl.List)
		api.GET("/weeks/:week/first", weeksCtl.FirstToReport)
		api.GET("/users/:id/awards", awardsCtl.UserAwards)
		api.POST("/admin/login", adminCtl.Login)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(cfg.JWTSecret))
	{
		admin.POST("/logout", adminCtl.Logout)
		admin.GET("/sms/audit", adminCtl.InboundAudit)
		admin.POST("/sms/test", adminCtl.TestSend)
		admin.GET("/settings", adminCtl.GetSettings)
		admin.PUT("/settings", adminCtl.UpdateSetting)
		admin.DELETE("/awards/cache", awardsCtl.ClearCache)
	}

	return r
}
