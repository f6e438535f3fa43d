package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

// SecureHeaders 为控制台 API 加安全响应头
// dev 模式下 secure 会跳过大部分检查，方便本地调试
func SecureHeaders(dev bool) gin.HandlerFunc {
	// 在返回函数之前初始化，避免每次请求都重复创建对象
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		ReferrerPolicy:     "no-referrer",
		IsDevelopment:      dev,
	})

	return func(c *gin.Context) {
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			// 不要在中间件里用 Fatal，记录日志并终止当前请求
			zap.L().Warn("secure middleware rejected request", zap.String("path", c.Request.URL.Path), zap.Error(err))
			c.Abort()
			return
		}
		c.Next()
	}
}
