package code

// 错误码消息映射
var codeMessageMap = map[int]string{
	// 通用错误码
	ErrSuccess:         "成功",
	ErrUnknown:         "未知错误",
	ErrBind:            "请求参数绑定错误",
	ErrValidation:      "请求参数验证错误",
	ErrTokenInvalid:    "无效的认证令牌",
	ErrTooManyRequests: "请求过于频繁，请稍后再试",
	ErrForbidden:       "权限不足",

	// 数据库相关错误码
	ErrDatabase:       "数据库错误",
	ErrRecordNotFound: "记录不存在",

	// 警报相关错误码
	ErrAlertNotFound:         "警报不存在",
	ErrAlertResolveForbidden: "只有响应者可以解除警报",
	ErrAlertInvalid:          "警报内容不完整",
	ErrAlertKeyConflict:      "幂等键已被其他用户使用",

	// 媒体相关错误码
	ErrMediaTooLarge:     "媒体文件超过大小限制",
	ErrMediaUploadFailed: "媒体上传失败",
	ErrMediaNotFound:     "媒体不存在",

	// 通知相关错误码
	ErrNotificationFailed: "通知发送失败",
	ErrPushTokenInvalid:   "推送令牌无效",
}

// 错误码HTTP状态码映射
var codeStatusMap = map[int]int{
	// 通用错误码
	ErrSuccess:         StatusOK,
	ErrUnknown:         StatusInternalServerError,
	ErrBind:            StatusBadRequest,
	ErrValidation:      StatusBadRequest,
	ErrTokenInvalid:    StatusUnauthorized,
	ErrTooManyRequests: StatusTooManyRequests,
	ErrForbidden:       StatusForbidden,

	// 数据库相关错误码
	ErrDatabase:       StatusInternalServerError,
	ErrRecordNotFound: StatusNotFound,

	// 警报相关错误码
	ErrAlertNotFound:         StatusNotFound,
	ErrAlertResolveForbidden: StatusForbidden,
	ErrAlertInvalid:          StatusBadRequest,
	ErrAlertKeyConflict:      StatusConflict,

	// 媒体相关错误码
	ErrMediaTooLarge:     StatusRequestEntityTooLarge,
	ErrMediaUploadFailed: StatusBadGateway,
	ErrMediaNotFound:     StatusNotFound,

	// 通知相关错误码
	ErrNotificationFailed: StatusBadGateway,
	ErrPushTokenInvalid:   StatusBadRequest,
}

// GetMessage 获取错误码对应的消息
func GetMessage(code int) string {
	if msg, ok := codeMessageMap[code]; ok {
		return msg
	}
	return "未知错误"
}

// GetStatus 获取错误码对应的HTTP状态码
func GetStatus(code int) int {
	if status, ok := codeStatusMap[code]; ok {
		return status
	}
	return StatusInternalServerError
}
