package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sobercast/sobercast/config"
	"github.com/sobercast/sobercast/controllers"
	"github.com/sobercast/sobercast/middleware"
	"github.com/sobercast/sobercast/services"
	"github.com/sobercast/sobercast/utils"
)

// Dependencies are the long-lived resources the router wires into services.
type Dependencies struct {
	Config  config.AppConfig
	DB      *gorm.DB
	Cache   *utils.Cache
	Metrics utils.Metrics
	// Now overrides the clock used to decide "today". Nil means time.Now.
	Now func() time.Time
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Dependencies) (*gin.Engine, error) {
	cfg := deps.Config
	switch strings.ToLower(cfg.App.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Metrics == nil {
		deps.Metrics = utils.NopMetrics{}
	}

	loc := cfg.Location()
	checkinSvc := services.NewCheckinService(deps.DB, deps.Cache, deps.Metrics, loc)
	statsSvc := services.NewStatsService(deps.DB, deps.Cache, loc)
	boardSvc, err := services.NewLeaderboardService(deps.DB, deps.Cache, cfg.Leaderboard, loc)
	if err != nil {
		return nil, err
	}
	if deps.Now != nil {
		checkinSvc.WithClock(deps.Now)
		statsSvc.WithClock(deps.Now)
		boardSvc.WithClock(deps.Now)
	}

	r := gin.New()
	// Access log goes to its own rolling file; falls back to the app logger.
	gl, err := utils.NewRollingFileLogger(cfg.App.GinLogPath, cfg.Log)
	if err != nil {
		gl = utils.Logger
	}
	r.Use(utils.Ginzap(gl, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(gl, false))
	r.Use(middleware.Metrics(deps.Metrics))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", utils.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", utils.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.App.AllowedOrigins) == 0 || (len(cfg.App.AllowedOrigins) == 1 && cfg.App.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.App.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	if cfg.App.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	checkinController := controllers.NewCheckinController(checkinSvc)
	leaderboardController := controllers.NewLeaderboardController(boardSvc)
	statsController := controllers.NewStatsController(statsSvc)
	configController := controllers.NewConfigController(cfg)
	webhookController := controllers.NewWebhookController()

	api := r.Group("/api")
	api.Use(middleware.RateLimit(cfg.App.RateLimitPerMinute))

	checkin := api.Group("/checkin")
	checkin.Use(middleware.Identity(cfg.App.AuthSecret))
	checkin.POST("", checkinController.Checkin)
	checkin.GET("", checkinController.Status)
	checkin.GET("/history", checkinController.History)

	api.GET("/leaderboard", leaderboardController.Top)
	api.GET("/stats", statsController.GetStats)
	api.GET("/config/app", configController.GetApp)
	api.POST("/webhook", webhookController.Receive)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, utils.CodeNotFound, "api route not found")
	})

	return r, nil
}
