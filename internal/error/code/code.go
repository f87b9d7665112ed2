package code

// HTTP状态码.
const (
	// StatusOK - 200: 成功.
	StatusOK = 200
	// StatusBadRequest - 400: 请求参数错误.
	StatusBadRequest = 400
	// StatusUnauthorized - 401: 未授权.
	StatusUnauthorized = 401
	// StatusForbidden - 403: 禁止访问.
	StatusForbidden = 403
	// StatusNotFound - 404: 资源不存在.
	StatusNotFound = 404
	// StatusConflict - 409
	StatusConflict = 409
	// StatusRequestEntityTooLarge - 413: 请求体过大.
	StatusRequestEntityTooLarge = 413
	// StatusTooManyRequests - 429: 请求过多.
	StatusTooManyRequests = 429
	// StatusInternalServerError - 500: 服务器内部错误.
	StatusInternalServerError = 500
	// StatusBadGateway - 502: 上游服务错误.
	StatusBadGateway = 502
)

// 通用错误码 (100xxx).
const (
	// ErrSuccess - 200: 成功.
	ErrSuccess int = iota + 100000
	// ErrUnknown - 500: 未知错误.
	ErrUnknown
	// ErrBind - 400: 请求参数绑定错误.
	ErrBind
	// ErrValidation - 400: 请求参数验证错误.
	ErrValidation
	// ErrTokenInvalid - 401: 令牌无效.
	ErrTokenInvalid
	// ErrTooManyRequests - 429: 请求频率过高.
	ErrTooManyRequests
	// ErrForbidden - 403: 权限不足.
	ErrForbidden
)

// 数据库相关错误码 (105xxx).
const (
	// ErrDatabase - 500: 数据库错误.
	ErrDatabase int = iota + 105000
	// ErrRecordNotFound - 404: 记录不存在.
	ErrRecordNotFound
)

// 警报相关错误码 (106xxx).
const (
	// ErrAlertNotFound - 404: 警报不存在.
	ErrAlertNotFound int = iota + 106000
	// ErrAlertResolveForbidden - 403: 只有响应者可以解除警报.
	ErrAlertResolveForbidden
	// ErrAlertInvalid - 400: 警报内容不完整.
	ErrAlertInvalid
	// ErrAlertKeyConflict - 409: 幂等键已被其他用户的警报使用.
	ErrAlertKeyConflict
)

// 媒体相关错误码 (107xxx).
const (
	// ErrMediaTooLarge - 413: 媒体文件超过大小限制.
	ErrMediaTooLarge int = iota + 107000
	// ErrMediaUploadFailed - 502: 媒体上传失败.
	ErrMediaUploadFailed
	// ErrMediaNotFound - 404: 媒体不存在.
	ErrMediaNotFound
)

// 通知相关错误码 (108xxx).
const (
	// ErrNotificationFailed - 502: 通知发送失败.
	ErrNotificationFailed int = iota + 108000
	// ErrPushTokenInvalid - 400: 推送令牌无效.
	ErrPushTokenInvalid
)
