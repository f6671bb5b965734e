package utils

import "github.com/gin-gonic/gin"

// Response codes. The first three digits mirror the HTTP status; 0 is success.
const (
	CodeOK                = 0
	CodeAlreadyCheckedIn  = 20030
	CodeInvalidInput      = 40010
	CodeInvalidPayload    = 40001
	CodeUnauthorized      = 40110
	CodeTokenInvalid      = 40111
	CodeIdentityMismatch  = 40310
	CodeNotFound          = 40400
	CodeRateLimited       = 42901
	CodeInternal          = 50000
	CodeCheckinFailed     = 50030
	CodeLeaderboardFailed = 50040
	CodeStatsFailed       = 50050
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, 200, CodeOK, "success", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}
