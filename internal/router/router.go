package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"reseller_hub/internal/controller"
	"reseller_hub/internal/metrics"
	"reseller_hub/internal/middleware"
	"reseller_hub/internal/model"
	"reseller_hub/internal/web"
)

// Controllers 所有控制器
type Controllers struct {
	Store    *controller.StoreController
	Settings *controller.SettingsController
	Auth     *controller.AuthController
	Admin    *controller.AdminController
	Pages    *web.Pages
}

// Infra 路由依赖的基础组件
type Infra struct {
	DB      *gorm.DB
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	Limiter *middleware.RateLimiter
}

// SetupRouter 注册所有路由
func SetupRouter(ctrls *Controllers, infra Infra) *gin.Engine {
	if infra.Logger == nil {
		infra.Logger = zap.NewNop()
	}
	if infra.Limiter == nil {
		infra.Limiter = middleware.NewRateLimiter()
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(infra.Logger))
	if infra.Metrics != nil {
		r.Use(middleware.Metrics(infra.Metrics))
		r.GET("/metrics", gin.WrapH(infra.Metrics.Handler()))
	}
	r.SetHTMLTemplate(web.Templates())

	r.GET("/healthz", healthz(infra.DB))

	// 登出走表单提交，位于 /api 之外
	r.POST("/auth/signout", ctrls.Auth.SignOut)

	api := r.Group("/api")
	{
		// auth 鉴权组
		auth := api.Group("/auth")
		{
			auth.POST("/register", ctrls.Auth.Register)
			auth.POST("/login", ctrls.Auth.Login)
			auth.POST("/refresh", ctrls.Auth.RefreshToken)
			auth.GET("/me", middleware.SessionAuth(), ctrls.Auth.Me)
			auth.PUT("/password", middleware.SessionAuth(), ctrls.Auth.ChangePassword)
		}

		// reseller 分销商自助
		reseller := api.Group("/reseller",
			middleware.SessionAuth(),
			middleware.RequireRole(string(model.UserRoleReseller)),
			middleware.AuditContext(),
		)
		{
			reseller.POST("/store", ctrls.Store.CreateStore)
			reseller.GET("/store", ctrls.Store.GetStore)
			reseller.PATCH("/store", ctrls.Store.UpdateStore)
			reseller.POST("/store/domain/verify",
				middleware.DomainVerifyRateLimit(infra.Limiter, middleware.DomainVerifyInterval),
				ctrls.Store.VerifyDomain)

			reseller.GET("/settings", ctrls.Settings.GetSettings)
			reseller.PATCH("/settings", ctrls.Settings.UpdateSettings)
		}

		// admin 平台管理
		admin := api.Group("/admin",
			middleware.SessionAuth(),
			middleware.RequireRole(string(model.UserRoleAdmin)),
			middleware.AuditContext(),
		)
		{
			admin.GET("/stores", ctrls.Admin.ListStores)
			admin.PATCH("/stores/:id/status", ctrls.Admin.UpdateStoreStatus)
			admin.GET("/users", ctrls.Admin.ListUsers)
		}
	}

	// 服务端渲染页面，会话状态由页面自行判断
	if ctrls.Pages != nil {
		pages := r.Group("", middleware.OptionalAuth())
		{
			pages.GET("/admin", ctrls.Pages.Admin)
			pages.GET("/admin/*section", ctrls.Pages.Admin)
			pages.GET("/reseller/settings", ctrls.Pages.Settings)
			pages.POST("/reseller/settings/:tab", ctrls.Pages.SubmitSettings)
		}
	}

	return r
}

func healthz(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()

			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(ctx)
			}
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
