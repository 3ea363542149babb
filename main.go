package main

import (
	"github.com/king44444/walking-step-tracker-app-sub000/config"
	"github.com/king44444/walking-step-tracker-app-sub000/models"
	"github.com/king44444/walking-step-tracker-app-sub000/routes"
	"github.com/king44444/walking-step-tracker-app-sub000/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(cfg,
		&models.User{},
		&models.Week{},
		&models.Entry{},
		&models.SmsAudit{},
		&models.SmsOutboundAudit{},
		&models.AwardCrossing{},
		&models.Setting{},
	)

	writer := models.NewWriter(db)
	notifier := &utils.Notifier{
		DB:     db,
		Writer: writer,
		Sender: utils.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber),
	}

	r := routes.SetupRouter(db, writer, cfg, notifier)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r, writer.Close); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
