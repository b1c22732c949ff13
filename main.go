package main

import (
	"github.com/onlytalk/onlytalk/config"
	"github.com/onlytalk/onlytalk/routes"
	"github.com/onlytalk/onlytalk/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	// Schema migration and reference data seeding happen here, before the
	// first request is accepted
	db := config.InitDatabase()

	r := routes.SetupRouter(db)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
