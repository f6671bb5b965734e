package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sobercast/sobercast/services"
	"github.com/sobercast/sobercast/utils"
)

type LeaderboardController struct {
	svc *services.LeaderboardService
}

func NewLeaderboardController(svc *services.LeaderboardService) *LeaderboardController {
	return &LeaderboardController{svc: svc}
}

// Top returns the ranked community leaderboard.
func (l *LeaderboardController) Top(ctx *gin.Context) {
	rows, err := l.svc.Top(ctx.Request.Context())
	if err != nil {
		utils.Sugar.Errorw("leaderboard failed", "error", err)
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeLeaderboardFailed, "failed to fetch leaderboard")
		return
	}
	utils.Success(ctx, gin.H{"leaderboard": rows})
}
