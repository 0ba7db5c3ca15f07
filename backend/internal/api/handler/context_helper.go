package handler

import (
	"github.com/gin-gonic/gin"

	"ai-advisor/backend/internal/api/middleware"
	"ai-advisor/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(middleware.ContextUserID)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// OptionalUserID 提取 user_id，匿名请求返回空字符串
func OptionalUserID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserID)
}
