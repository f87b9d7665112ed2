package controllers

import (
	"rescue-alert-service/internal/app/middleware"
	"rescue-alert-service/internal/domain/services"
	"rescue-alert-service/internal/domain/services/container"
	"rescue-alert-service/internal/error/code"
	"rescue-alert-service/internal/error/response"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// MediaController 处理媒体上传与查看
type MediaController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// HandleMediaFunc 返回一个处理媒体请求的Gin处理函数
func HandleMediaFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := &MediaController{Ctx: ctx, Container: container}

		if container.Media() == nil {
			response.FailWithMessage(ctx, code.ErrMediaUploadFailed, "未配置对象存储", nil)
			return
		}

		switch method {
		case "uploadMedia":
			controller.UploadMedia()
		case "viewMedia":
			controller.ViewMedia()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

// 1. UploadMedia 上传一个媒体文件（multipart 字段 file），返回存储ID
func (c *MediaController) UploadMedia() {
	header, err := c.Ctx.FormFile("file")
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "缺少文件: "+err.Error(), nil)
		return
	}

	file, err := header.Open()
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrMediaUploadFailed, err.Error(), nil)
		return
	}
	defer file.Close()

	actor, _ := middleware.CurrentActor(c.Ctx)
	obj, err := c.Container.Media().Upload(c.Ctx.Request.Context(), actor, services.UploadMediaInput{
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Body:     file,
	})
	if err != nil {
		if errors.Is(err, services.ErrMediaTooLarge) {
			failFromError(c.Ctx, err)
			return
		}
		response.FailWithMessage(c.Ctx, code.ErrMediaUploadFailed, "媒体上传失败: "+err.Error(), nil)
		return
	}
	response.Success(c.Ctx, obj)
}

// 2. ViewMedia 返回媒体的限时查看地址
func (c *MediaController) ViewMedia() {
	url, err := c.Container.Media().ViewURL(c.Ctx.Request.Context(), c.Ctx.Param("id"))
	if err != nil {
		failFromError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, gin.H{"url": url})
}
