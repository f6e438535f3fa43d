package middleware

import (
	"net/http"
	"strings"

	"cms_chat_console/pkg/errorx"
	"cms_chat_console/pkg/util/jwt"

	"github.com/gin-gonic/gin"
)

// ContextOperatorKey 鉴权通过后操作员名称在 gin.Context 中的 key
const ContextOperatorKey = "operator"

// JWTAuth JWT 认证中间件
// 未配置密钥时直接放行（本地单人使用）；WebSocket 握手无法带 Header，允许用 ?token= 传递
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !jwt.Enabled() {
			c.Next()
			return
		}

		// 1. 从 Header 或查询参数获取 Token
		raw := c.Query("token")
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"code": errorx.CodeUnauthorized,
					"msg":  "Token 格式错误，请使用 Bearer Token",
				})
				return
			}
			raw = parts[1]
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": errorx.CodeUnauthorized,
				"msg":  "请先获取控制台 Token",
			})
			return
		}

		// 2. 验证 Token
		claims, err := jwt.ParseToken(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": errorx.CodeUnauthorized,
				"msg":  "Token 已过期或无效",
			})
			return
		}

		// 3. 将操作员存入上下文，供后续 Handler 记录日志
		c.Set(ContextOperatorKey, claims.Operator)
		c.Next()
	}
}
