package controllers

import (
	"rescue-alert-service/internal/app/middleware"
	"rescue-alert-service/internal/domain/services/container"
	"rescue-alert-service/internal/error/code"
	"rescue-alert-service/internal/error/response"

	"github.com/gin-gonic/gin"
)

// ResponderController 响应者目录
type ResponderController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// RegisterResponderRequest 响应者登记联系电话
type RegisterResponderRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required" example:"+639171234567"`
	Priority    int    `json:"priority"`
}

// HandleResponderFunc 返回一个处理响应者请求的Gin处理函数
func HandleResponderFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := &ResponderController{Ctx: ctx, Container: container}

		switch method {
		case "listResponders":
			controller.ListResponders()
		case "registerResponder":
			controller.RegisterResponder()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

// 1. ListResponders 返回响应者电话号码，供设备离线时发送短信
func (c *ResponderController) ListResponders() {
	numbers, err := c.Container.Responders().PhoneNumbers(c.Ctx.Request.Context())
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, gin.H{"phone_numbers": numbers})
}

// 2. RegisterResponder 响应者登记或更新自己的电话
func (c *ResponderController) RegisterResponder() {
	var req RegisterResponderRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}

	actor, _ := middleware.CurrentActor(c.Ctx)
	responder, err := c.Container.Responders().Register(c.Ctx.Request.Context(), actor, req.PhoneNumber, req.Priority)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, responder)
}
