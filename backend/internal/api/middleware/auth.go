package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ai-advisor/backend/pkg/jwt"
	"ai-advisor/backend/pkg/response"
)

// Context 键
const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
	ContextRole   = "role"
)

// bearerToken 从 Authorization: Bearer <token> 中提取令牌
// ok=false 表示请求头存在但格式无效
func bearerToken(c *gin.Context) (token string, present bool, ok bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false, true
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", true, false
	}
	return strings.TrimSpace(parts[1]), true, true
}

// setClaims 注入身份；sub 必须是 UUID（与 users.user_id 列一致），否则返回 false
func setClaims(c *gin.Context, claims *jwt.Claims) bool {
	if _, err := uuid.Parse(claims.UserID()); err != nil {
		return false
	}
	c.Set(ContextUserID, claims.UserID())
	c.Set(ContextEmail, claims.Email)
	c.Set(ContextRole, claims.Role)
	return true
}

// JWTAuth JWT 认证中间件
// 令牌由外部认证服务签发，这里只做签名与有效期校验
func JWTAuth(jwtMgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present, ok := bearerToken(c)
		if !present {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}
		if !ok {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(token)
		if err != nil {
			msg := "Token 无效"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Token 已过期"
			}
			response.Unauthorized(c, 10002, msg)
			c.Abort()
			return
		}

		if !setClaims(c, claims) {
			response.Unauthorized(c, 10002, "Token 主体无效")
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuth 可选认证中间件
// 无认证头时以匿名身份放行；认证头存在但无效时仍返回 401，避免静默降级为匿名
func OptionalAuth(jwtMgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present, ok := bearerToken(c)
		if !present {
			c.Next()
			return
		}
		if !ok {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(token)
		if err != nil {
			response.Unauthorized(c, 10002, "Token 无效或已过期")
			c.Abort()
			return
		}

		if !setClaims(c, claims) {
			response.Unauthorized(c, 10002, "Token 主体无效")
			c.Abort()
			return
		}
		c.Next()
	}
}
