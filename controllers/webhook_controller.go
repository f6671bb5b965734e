package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/sobercast/sobercast/utils"
)

const maxWebhookBody = 1 << 20

// WebhookController acknowledges host platform events.
type WebhookController struct{}

func NewWebhookController() *WebhookController { return &WebhookController{} }

// Receive logs the event payload and acknowledges it.
func (w *WebhookController) Receive(ctx *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxWebhookBody))
	if err != nil || !json.Valid(body) {
		utils.Error(ctx, http.StatusBadRequest, utils.CodeInvalidPayload, "invalid webhook payload")
		return
	}

	utils.Logger.Info("webhook received",
		zap.ByteString("payload", body),
		zap.String("request_id", ctx.GetString("request_id")),
	)
	utils.Success(ctx, gin.H{
		"success": true,
		"message": "Webhook received",
	})
}
