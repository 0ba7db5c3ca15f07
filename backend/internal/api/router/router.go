package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ai-advisor/backend/config"
	"ai-advisor/backend/internal/api/handler"
	"ai-advisor/backend/internal/api/middleware"
	"ai-advisor/backend/pkg/jwt"
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时求解接口不限流
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, limiter middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 求解：允许匿名（使用默认偏好），携带令牌时按用户偏好求解
		v1.POST("/solve",
			middleware.OptionalAuth(jwtMgr),
			middleware.RateLimit(limiter, cfg.Solver.RateLimit, time.Minute),
			h.Solve.Solve,
		)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr))
		{
			// 偏好模块
			preferences := authorized.Group("/preferences")
			{
				preferences.GET("", h.Preference.GetPreference)
				preferences.PUT("", h.Preference.UpsertPreference)
				preferences.POST("/blacklist/import", h.Preference.ImportBlacklist)
			}

			// 课表方案模块
			plans := authorized.Group("/plans")
			{
				plans.GET("", h.Plan.ListPlans)
				plans.POST("", h.Plan.CreatePlan)
				plans.GET("/:id", h.Plan.GetPlan)
				plans.PUT("/:id/activate", h.Plan.ActivatePlan)
				plans.DELETE("/:id", h.Plan.DeletePlan)
			}

			// 导出模块
			export := authorized.Group("/export")
			{
				export.GET("/plans/:id", h.Export.ExportPlan)
			}
		}
	}

	return r
}
