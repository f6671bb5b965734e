package main

import (
	"github.com/sobercast/sobercast/config"
	"github.com/sobercast/sobercast/routes"
	"github.com/sobercast/sobercast/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(cfg)
	rc := utils.GetRedis()
	metrics := utils.NewMetrics(cfg.App.MetricsEnabled)
	cache := utils.NewCache(cfg.Cache.LocalSizeMB, rc, cfg.Cache.TTL, metrics)

	r, err := routes.SetupRouter(routes.Dependencies{
		Config:  cfg,
		DB:      db,
		Cache:   cache,
		Metrics: metrics,
	})
	if err != nil {
		utils.Sugar.Fatalf("setup router: %v", err)
	}

	utils.Sugar.Infof("Starting server on port %s (graceful), db=%s tz=%s", cfg.App.Port, cfg.Database.Driver, cfg.App.Timezone)
	err = utils.GraceServer(":"+cfg.App.Port, r, func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		if rc != nil {
			_ = rc.Close()
		}
	})
	if err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
