package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/healthmate/healthmate/config"
	"github.com/healthmate/healthmate/controllers"
	"github.com/healthmate/healthmate/middleware"
	"github.com/healthmate/healthmate/progress"
	"github.com/healthmate/healthmate/utils"
)

const progressLockTTL = 15 * time.Second

// NewProgressService builds the aggregator on top of MySQL. Locks and the
// snapshot cache move to Redis when it is configured.
func NewProgressService(db *gorm.DB) *progress.Service {
	cfg := config.Get()
	opts := []progress.Option{
		progress.WithLocation(cfg.Location()),
		progress.WithTimeout(cfg.PersistTimeout()),
		progress.WithNotifier(controllers.NewEmergencyNotifier(db)),
		progress.WithLogger(utils.Logger),
	}
	if rc := utils.GetRedis(); rc != nil {
		opts = append(opts,
			progress.WithLocker(progress.NewRedisLocker(rc, progressLockTTL)),
			progress.WithCache(utils.NewRedisCache(rc), cfg.ProgressCacheTTL()),
		)
	}
	return progress.NewService(progress.NewGormStore(db), opts...)
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, svc *progress.Service) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Access log goes to its own rotating file when configured
	gl := utils.Logger
	if cfg.GinPath != "" {
		gl = utils.NewRollingFileLogger(cfg.GinPath, cfg)
	}
	r.Use(utils.Ginzap(gl))
	r.Use(utils.RecoveryWithZap(gl))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", utils.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db, svc)
	vitalsController := controllers.NewVitalsController(svc)
	progressController := controllers.NewProgressController(svc)
	chatController := controllers.NewChatController(svc)
	statsController := controllers.NewStatsController(db, utils.NewRedisCache(utils.GetRedis()))

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/captcha", authController.Captcha)
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)
	authGroup.DELETE("/account", middleware.AuthRequired(), authController.DeleteAccount)

	// Public stats endpoint
	api.GET("/stats", statsController.GetStats)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())

	protected.POST("/vitals", vitalsController.Record)
	protected.GET("/vitals", vitalsController.List)
	protected.POST("/vitals/evaluate", vitalsController.Evaluate)
	protected.GET("/vitals/insights", vitalsController.Insights)
	protected.GET("/progress", progressController.Get)
	protected.GET("/rewards", progressController.Rewards)
	protected.POST("/chat", chatController.Ask)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
