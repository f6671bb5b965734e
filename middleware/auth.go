package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sobercast/sobercast/utils"
)

// ContextFIDKey stores the authenticated fid inside the Gin context.
const ContextFIDKey = "fid"

// Identity verifies a bearer token carrying the caller's fid. With an empty
// secret it is a no-op and handlers trust the fid in the request.
func Identity(secret string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if secret == "" {
			ctx.Next()
			return
		}

		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(ctx, http.StatusUnauthorized, utils.CodeUnauthorized, "authorization header missing")
			ctx.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			utils.Error(ctx, http.StatusUnauthorized, utils.CodeUnauthorized, "invalid authorization header format")
			ctx.Abort()
			return
		}

		claims, err := utils.ParseToken(secret, strings.TrimSpace(parts[1]))
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, utils.CodeTokenInvalid, "invalid token")
			ctx.Abort()
			return
		}

		ctx.Set(ContextFIDKey, claims.FID)
		ctx.Next()
	}
}

// AuthenticatedFID returns the fid set by Identity, if any.
func AuthenticatedFID(ctx *gin.Context) (uint64, bool) {
	v, ok := ctx.Get(ContextFIDKey)
	if !ok {
		return 0, false
	}
	fid, ok := v.(uint64)
	return fid, ok
}
