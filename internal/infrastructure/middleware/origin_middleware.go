package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"cms_chat_console/pkg/errorx"

	"github.com/gin-gonic/gin"
)

// OriginAllowed 判断请求来源是否可信
// 没有 Origin 头（CLI、curl）和同源请求总是放行，其余来源必须在 allowed 中，"*" 表示全部放行
func OriginAllowed(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(strings.TrimSuffix(a, "/"), origin) {
			return true
		}
	}
	return false
}

// OriginGuard 拒绝不在白名单中的跨域请求
// 控制台持有后端 token，浏览器中任意页面都能向本机端口发请求，只靠 CORS 拦不住简单请求
func OriginGuard(allowed []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !OriginAllowed(c.Request, allowed) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code": errorx.CodeForbidden,
				"msg":  "不允许的请求来源",
			})
			return
		}
		c.Next()
	}
}
