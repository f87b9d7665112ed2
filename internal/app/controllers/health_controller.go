package controllers

import (
	"rescue-alert-service/internal/domain/services/container"
	"rescue-alert-service/internal/error/code"
	"rescue-alert-service/internal/error/response"

	"github.com/gin-gonic/gin"
)

// HealthController 健康检查控制器，也是设备端连通性探测的目标
type HealthController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// HandleHealthFunc 返回健康检查处理函数
func HandleHealthFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := &HealthController{Ctx: ctx, Container: container}

		switch method {
		case "ping":
			controller.Ping()
		case "status":
			controller.Status()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

// 1 Ping 健康检查端点
func (c *HealthController) Ping() {
	response.Success(c.Ctx, gin.H{
		"status":  "healthy",
		"message": "pong",
	})
}

// 2 Status 返回数据库、Redis 和 MQTT 的状态
func (c *HealthController) Status() {
	sqlDB, err := c.Container.GetDB().DB()
	if err != nil || sqlDB.PingContext(c.Ctx.Request.Context()) != nil {
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "数据库不可用", nil)
		return
	}
	stats := sqlDB.Stats()
	response.Success(c.Ctx, gin.H{
		"database":         "up",
		"open_connections": stats.OpenConnections,
		"in_use":           stats.InUse,
		"media_enabled":    c.Container.Media() != nil,
		"redis_enabled":    c.Container.GetService("redis") != nil,
		"mqtt_enabled":     c.Container.GetService("events") != nil,
	})
}
