package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sobercast/sobercast/utils"
)

// Metrics records request counts and latency per route template.
func Metrics(m utils.Metrics) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		endpoint := ctx.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.IncRequestsTotal(endpoint, ctx.Writer.Status())
		m.ObserveRequestDuration(endpoint, time.Since(start))
	}
}
