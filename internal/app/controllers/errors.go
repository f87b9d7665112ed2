package controllers

import (
	"rescue-alert-service/internal/domain/models"
	"rescue-alert-service/internal/domain/services"
	"rescue-alert-service/internal/error/code"
	"rescue-alert-service/internal/error/response"
	Logger "rescue-alert-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// failFromError 把服务层错误映射为统一错误码
func failFromError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrAlertNotFound):
		response.Fail(ctx, code.ErrAlertNotFound, nil)
	case errors.Is(err, services.ErrAlertInvalid):
		response.Fail(ctx, code.ErrAlertInvalid, nil)
	case errors.Is(err, services.ErrAlertKeyConflict):
		response.Fail(ctx, code.ErrAlertKeyConflict, nil)
	case errors.Is(err, models.ErrResolveForbidden):
		response.Fail(ctx, code.ErrAlertResolveForbidden, nil)
	case errors.Is(err, services.ErrMediaTooLarge):
		response.FailWithMessage(ctx, code.ErrMediaTooLarge, err.Error(), nil)
	case errors.Is(err, services.ErrMediaNotFound):
		response.Fail(ctx, code.ErrMediaNotFound, nil)
	case errors.Is(err, services.ErrPushTokenInvalid):
		response.Fail(ctx, code.ErrPushTokenInvalid, nil)
	case errors.Is(err, services.ErrPhoneNumberRequired):
		response.ParamError(ctx, err.Error())
	case errors.Is(err, services.ErrNotificationFailed):
		response.Fail(ctx, code.ErrNotificationFailed, nil)
	default:
		Logger.Error("[API] %s %s 失败: %+v", ctx.Request.Method, ctx.Request.URL.Path, err)
		response.Fail(ctx, code.ErrDatabase, nil)
	}
}
