package controllers

import (
	"rescue-alert-service/internal/app/middleware"
	"rescue-alert-service/internal/domain/services"
	"rescue-alert-service/internal/domain/services/container"
	"rescue-alert-service/internal/error/code"
	"rescue-alert-service/internal/error/response"

	"github.com/gin-gonic/gin"
)

// NotificationController 在线路径的通知入口
type NotificationController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// HandleNotificationFunc 返回一个处理通知请求的Gin处理函数
func HandleNotificationFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := &NotificationController{Ctx: ctx, Container: container}

		switch method {
		case "sendNotification":
			controller.SendNotification()
		case "registerPushToken":
			controller.RegisterPushToken()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

// PushTokenRequest 登记推送令牌
type PushTokenRequest struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform" example:"android"`
}

// 1. SendNotification 向响应者扇出推送与短信，发送者取自令牌
func (c *NotificationController) SendNotification() {
	var req services.NotificationRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}

	actor, _ := middleware.CurrentActor(c.Ctx)
	req.SenderID = actor.UserID

	result, err := c.Container.Notifications().Send(c.Ctx.Request.Context(), req)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, result)
}

// 2. RegisterPushToken 登记当前设备的推送令牌
func (c *NotificationController) RegisterPushToken() {
	var req PushTokenRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}

	actor, _ := middleware.CurrentActor(c.Ctx)
	token, err := c.Container.PushTokens().Register(c.Ctx.Request.Context(), actor, req.Token, req.Platform)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, token)
}
