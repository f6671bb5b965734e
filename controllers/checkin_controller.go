package controllers

import (
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/sobercast/sobercast/middleware"
	"github.com/sobercast/sobercast/services"
	"github.com/sobercast/sobercast/utils"
)

// CheckinController handles daily check-in endpoints.
type CheckinController struct {
	svc *services.CheckinService
}

// NewCheckinController creates a new controller instance.
func NewCheckinController(svc *services.CheckinService) *CheckinController {
	return &CheckinController{svc: svc}
}

type checkinRequest struct {
	FID               uint64 `json:"fid"`
	Username          string `json:"username" binding:"max=256"`
	DisplayName       string `json:"displayName" binding:"max=256"`
	PfpURL            string `json:"pfpUrl" binding:"max=1024"`
	SobrietyStartDate string `json:"sobrietyStartDate"`
}

// Checkin records today's check-in for the caller.
func (c *CheckinController) Checkin(ctx *gin.Context) {
	var req checkinRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, utils.CodeInvalidInput, "invalid request payload")
		return
	}
	if req.FID == 0 {
		utils.Error(ctx, http.StatusBadRequest, utils.CodeInvalidInput, "FID is required")
		return
	}
	if !authorizeFID(ctx, req.FID) {
		return
	}

	res, err := c.svc.Record(ctx.Request.Context(), services.RecordInput{
		FID:               req.FID,
		Username:          req.Username,
		DisplayName:       req.DisplayName,
		PfpURL:            req.PfpURL,
		SobrietyStartDate: req.SobrietyStartDate,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			utils.Error(ctx, http.StatusBadRequest, utils.CodeInvalidInput, "invalid sobriety start date")
			return
		}
		utils.Sugar.Errorw("checkin failed", "fid", req.FID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeCheckinFailed, "failed to record check-in")
		return
	}

	if res.AlreadyCheckedIn {
		utils.Respond(ctx, http.StatusOK, utils.CodeAlreadyCheckedIn, "Already checked in today", gin.H{
			"alreadyCheckedIn": true,
			"user":             res.Member,
		})
		return
	}

	utils.Success(ctx, gin.H{
		"success":      true,
		"pointsEarned": res.PointsDelta,
		"streak":       res.Streak,
		"user":         res.Member,
	})
}

// Status returns the member and whether they already checked in today.
func (c *CheckinController) Status(ctx *gin.Context) {
	fid, ok := queryFID(ctx)
	if !ok || !authorizeFID(ctx, fid) {
		return
	}

	st, err := c.svc.Status(ctx.Request.Context(), fid)
	if err != nil {
		utils.Sugar.Errorw("load checkin status failed", "fid", fid, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeInternal, "failed to load user")
		return
	}
	utils.Success(ctx, st)
}

// History lists recent check-in days, newest first.
func (c *CheckinController) History(ctx *gin.Context) {
	fid, ok := queryFID(ctx)
	if !ok || !authorizeFID(ctx, fid) {
		return
	}
	limit, _ := strconv.Atoi(ctx.Query("limit"))

	days, err := c.svc.History(ctx.Request.Context(), fid, limit)
	if err != nil {
		utils.Sugar.Errorw("load checkin history failed", "fid", fid, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeInternal, "failed to load history")
		return
	}

	dates := make([]string, 0, len(days))
	for _, d := range days {
		dates = append(dates, d.String())
	}
	utils.Success(ctx, gin.H{"fid": fid, "checkins": dates})
}

func queryFID(ctx *gin.Context) (uint64, bool) {
	fid, err := strconv.ParseUint(ctx.Query("fid"), 10, 64)
	if err != nil || fid == 0 {
		utils.Error(ctx, http.StatusBadRequest, utils.CodeInvalidInput, "FID is required")
		return 0, false
	}
	return fid, true
}

// authorizeFID rejects requests whose fid differs from the token's. It
// passes when identity verification is disabled.
func authorizeFID(ctx *gin.Context, fid uint64) bool {
	authed, ok := middleware.AuthenticatedFID(ctx)
	if ok && authed != fid {
		utils.Error(ctx, http.StatusForbidden, utils.CodeIdentityMismatch, "fid does not match token")
		return false
	}
	return true
}
