package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/sobercast/sobercast/config"
	"github.com/sobercast/sobercast/streak"
	"github.com/sobercast/sobercast/utils"
)

// ConfigController serves client-facing settings derived from configuration.
type ConfigController struct {
	cfg config.AppConfig
}

func NewConfigController(cfg config.AppConfig) *ConfigController {
	return &ConfigController{cfg: cfg}
}

// GetApp returns the scoring and leaderboard settings clients display.
func (c *ConfigController) GetApp(ctx *gin.Context) {
	utils.Success(ctx, gin.H{
		"pointsPerCheckin": streak.PointsPerCheckin,
		"leaderboard": gin.H{
			"limit":   c.cfg.Leaderboard.Limit,
			"sortKey": c.cfg.Leaderboard.SortKey,
		},
		"timezone":     c.cfg.App.Timezone,
		"authRequired": c.cfg.App.AuthSecret != "",
	})
}
