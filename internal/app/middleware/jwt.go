package middleware

import (
	"strings"

	"rescue-alert-service/internal/domain/models"
	"rescue-alert-service/internal/domain/services"
	"rescue-alert-service/internal/error/response"

	"github.com/gin-gonic/gin"
)

// 上下文中保存操作者身份的键
const actorKey = "actor"

// extractToken 从授权头中提取token
func extractToken(authHeader string) string {
	// 检查并移除 "Bearer " 前缀
	if len(authHeader) > 7 && strings.HasPrefix(authHeader, "Bearer ") {
		return authHeader[7:]
	}
	return authHeader
}

// AuthenticateUser 验证令牌并把操作者身份写入上下文，任何已知角色都可以通过
func AuthenticateUser(jwtService services.InterfaceJWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "Authorization header is required")
			c.Abort()
			return
		}

		actor, err := jwtService.ExtractActor(extractToken(authHeader))
		if err != nil {
			response.Unauthorized(c, "Invalid token: "+err.Error())
			c.Abort()
			return
		}

		c.Set(actorKey, *actor)
		c.Set("userID", actor.UserID)
		c.Set("role", string(actor.Role))
		c.Next()
	}
}

// RequireRole 只允许指定角色访问，需在 AuthenticateUser 之后使用
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			response.Unauthorized(c, "")
			c.Abort()
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "Insufficient permissions: requires role "+joinRoles(roles))
		c.Abort()
	}
}

// CurrentActor 取出当前请求的操作者
func CurrentActor(c *gin.Context) (models.Actor, bool) {
	v, exists := c.Get(actorKey)
	if !exists {
		return models.Actor{}, false
	}
	actor, ok := v.(models.Actor)
	return actor, ok
}

func joinRoles(roles []models.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, "|")
}
