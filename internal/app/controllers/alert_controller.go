package controllers

import (
	"strconv"

	"rescue-alert-service/internal/app/middleware"
	"rescue-alert-service/internal/domain/services"
	"rescue-alert-service/internal/domain/services/container"
	"rescue-alert-service/internal/error/code"
	"rescue-alert-service/internal/error/response"

	"github.com/gin-gonic/gin"
)

// InterfaceAlertController 定义警报控制器接口
type InterfaceAlertController interface {
	CreateAlert()
	ListAlerts()
	GetActiveAlerts()
	GetHistory()
	GetAlert()
	ResolveAlert()
}

// AlertController 处理规范警报存储的请求
type AlertController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewAlertController 创建一个新的警报控制器
func NewAlertController(ctx *gin.Context, container *container.ServiceContainer) *AlertController {
	return &AlertController{
		Ctx:       ctx,
		Container: container,
	}
}

// CreateAlertRequest 创建警报请求
type CreateAlertRequest struct {
	BuildingID     string   `json:"building_id" binding:"required" example:"25"`
	Description    string   `json:"description" example:"Smoke on the second floor"`
	MediaIDs       []string `json:"media_ids"`
	IdempotencyKey string   `json:"idempotency_key"` // 离线同步时由设备生成
	SenderName     string   `json:"sender_name"`
}

// HandleAlertFunc 返回一个处理警报请求的Gin处理函数
func HandleAlertFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewAlertController(ctx, container)

		switch method {
		case "createAlert":
			controller.CreateAlert()
		case "listAlerts":
			controller.ListAlerts()
		case "getActiveAlerts":
			controller.GetActiveAlerts()
		case "getHistory":
			controller.GetHistory()
		case "getAlert":
			controller.GetAlert()
		case "resolveAlert":
			controller.ResolveAlert()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

// 1. CreateAlert 创建警报；携带已使用过的幂等键时返回已有记录
func (c *AlertController) CreateAlert() {
	var req CreateAlertRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}

	actor, _ := middleware.CurrentActor(c.Ctx)
	alert, replayed, err := c.Container.Alerts().Create(c.Ctx.Request.Context(), actor, services.CreateAlertInput{
		BuildingID:     req.BuildingID,
		Description:    req.Description,
		MediaIDs:       req.MediaIDs,
		IdempotencyKey: req.IdempotencyKey,
		SenderName:     req.SenderName,
	})
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, gin.H{
		"alert":    alert,
		"replayed": replayed,
	})
}

// 2. ListAlerts 按条件查询警报，按创建时间倒序
func (c *AlertController) ListAlerts() {
	filter := services.AlertFilter{SenderID: c.Ctx.Query("sender_id")}

	if v := c.Ctx.Query("resolved"); v != "" {
		resolved, err := strconv.ParseBool(v)
		if err != nil {
			response.ParamError(c.Ctx, "resolved 必须是布尔值")
			return
		}
		filter.Resolved = &resolved
	}
	if v := c.Ctx.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			response.ParamError(c.Ctx, "limit 必须是非负整数")
			return
		}
		filter.Limit = limit
	}

	// 非响应者只能查询自己发出的警报
	actor, _ := middleware.CurrentActor(c.Ctx)
	if !actor.Role.SeesAllAlerts() {
		filter.SenderID = actor.UserID
	}

	alerts, err := c.Container.Alerts().Query(c.Ctx.Request.Context(), filter)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, alerts)
}

// 3. GetActiveAlerts 获取当前用户视图中的未解除警报
func (c *AlertController) GetActiveAlerts() {
	actor, _ := middleware.CurrentActor(c.Ctx)
	alerts, err := c.Container.Alerts().Active(c.Ctx.Request.Context(), actor)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, alerts)
}

// 4. GetHistory 获取当前用户视图中的已解除警报
func (c *AlertController) GetHistory() {
	actor, _ := middleware.CurrentActor(c.Ctx)
	alerts, err := c.Container.Alerts().History(c.Ctx.Request.Context(), actor)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, alerts)
}

// 5. GetAlert 获取单个警报
func (c *AlertController) GetAlert() {
	id, ok := c.alertID()
	if !ok {
		return
	}

	alert, err := c.Container.Alerts().Get(c.Ctx.Request.Context(), id)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}

	actor, _ := middleware.CurrentActor(c.Ctx)
	if !alert.VisibleTo(actor) {
		response.Fail(c.Ctx, code.ErrAlertNotFound, nil)
		return
	}
	response.Success(c.Ctx, alert)
}

// 6. ResolveAlert 解除警报，只允许响应者
func (c *AlertController) ResolveAlert() {
	id, ok := c.alertID()
	if !ok {
		return
	}

	actor, _ := middleware.CurrentActor(c.Ctx)
	alert, err := c.Container.Alerts().Resolve(c.Ctx.Request.Context(), actor, id)
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, alert)
}

func (c *AlertController) alertID() (uint, bool) {
	id, err := strconv.ParseUint(c.Ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.ParamError(c.Ctx, "无效的警报ID")
		return 0, false
	}
	return uint(id), true
}
