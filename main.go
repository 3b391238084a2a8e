package main

import (
	"github.com/healthmate/healthmate/config"
	"github.com/healthmate/healthmate/models"
	"github.com/healthmate/healthmate/routes"
	"github.com/healthmate/healthmate/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(&models.User{}, &models.VitalsRecord{})
	utils.InitCaptchaStore()

	svc := routes.NewProgressService(db)
	r := routes.SetupRouter(db, svc)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
