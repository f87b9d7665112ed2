package routes

import (
	"rescue-alert-service/internal/app/controllers"
	"rescue-alert-service/internal/app/middleware"
	"rescue-alert-service/internal/domain/models"
	"rescue-alert-service/internal/domain/services/container"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter 初始化并返回配置好的路由
func SetupRouter(serviceContainer *container.ServiceContainer) *gin.Engine {
	// 初始化 Gin
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// 添加 CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, Accept, Origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Prometheus 指标
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 注册路由
	registerRoutes(r, serviceContainer)
	return r
}

// registerRoutes 配置所有API路由
func registerRoutes(r *gin.Engine, container *container.ServiceContainer) {
	// API 路由根路径
	api := r.Group("/api")
	// 注册公共路由
	registerPublicRoutes(api, container)
	// 注册需要认证的路由
	registerAuthenticatedRoutes(api, container)
}

// registerPublicRoutes 注册公共路由
func registerPublicRoutes(api *gin.RouterGroup, container *container.ServiceContainer) {
	public := api.Group("")
	// 添加IP限流中间件 - 每秒允许10个请求，最多突发20个请求
	public.Use(middleware.IPRateLimiter(10, 20))

	// 健康检查路由，设备端连通性探测也使用它
	public.GET("/ping", controllers.HandleHealthFunc(container, "ping"))
	public.GET("/health/status", controllers.HandleHealthFunc(container, "status"))
}

// registerAuthenticatedRoutes 注册需要认证的路由
func registerAuthenticatedRoutes(api *gin.RouterGroup, container *container.ServiceContainer) {
	authorized := api.Group("")
	authorized.Use(middleware.AuthenticateUser(container.JWT()))
	authorized.Use(middleware.UserRateLimiter(20, 40))

	// 警报路由
	alerts := authorized.Group("/alerts")
	{
		alerts.POST("", controllers.HandleAlertFunc(container, "createAlert"))
		alerts.GET("", controllers.HandleAlertFunc(container, "listAlerts"))
		alerts.GET("/active", controllers.HandleAlertFunc(container, "getActiveAlerts"))
		alerts.GET("/history", controllers.HandleAlertFunc(container, "getHistory"))
		alerts.GET("/:id", controllers.HandleAlertFunc(container, "getAlert"))
		alerts.POST("/:id/resolve", middleware.RequireRole(models.RoleResponder), controllers.HandleAlertFunc(container, "resolveAlert"))
	}

	// 媒体路由
	media := authorized.Group("/media")
	{
		media.POST("", controllers.HandleMediaFunc(container, "uploadMedia"))
		media.GET("/:id/view", controllers.HandleMediaFunc(container, "viewMedia"))
	}

	// 通知路由
	authorized.POST("/notifications/send", controllers.HandleNotificationFunc(container, "sendNotification"))
	authorized.POST("/push-tokens", controllers.HandleNotificationFunc(container, "registerPushToken"))

	// 响应者目录
	responders := authorized.Group("/responders")
	{
		responders.GET("", controllers.HandleResponderFunc(container, "listResponders"))
		responders.POST("", middleware.RequireRole(models.RoleResponder), controllers.HandleResponderFunc(container, "registerResponder"))
	}
}
