package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sobercast/sobercast/services"
	"github.com/sobercast/sobercast/utils"
)

// StatsController provides community statistics.
type StatsController struct {
	svc *services.StatsService
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(svc *services.StatsService) *StatsController {
	return &StatsController{svc: svc}
}

// GetStats returns aggregate statistics for the community.
func (s *StatsController) GetStats(ctx *gin.Context) {
	stats, err := s.svc.Community(ctx.Request.Context())
	if err != nil {
		utils.Sugar.Errorw("stats failed", "error", err)
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeStatsFailed, "failed to load stats")
		return
	}
	utils.Success(ctx, stats)
}
