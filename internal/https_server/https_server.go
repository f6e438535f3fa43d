// Package https_server 提供控制台 HTTP 服务器的初始化和配置
// 负责创建 Gin 引擎实例并配置中间件和路由
package https_server

import (
	"slices"

	"cms_chat_console/internal/handler"                  // Handler 聚合对象
	"cms_chat_console/internal/infrastructure/logger"     // 自定义日志中间件
	"cms_chat_console/internal/infrastructure/middleware" // 安全头与来源校验中间件
	"cms_chat_console/internal/router"                    // 路由注册

	"github.com/gin-contrib/cors" // CORS 跨域中间件
	"github.com/gin-gonic/gin"    // Gin Web 框架
)

// Init 初始化控制台 HTTP 服务器并返回 Gin 引擎实例
// 配置顺序：
//  1. 创建 Gin 引擎（空白，不含默认中间件）
//  2. 注册日志和恢复中间件
//  3. 安全响应头、来源校验与 CORS
//  4. 注册业务路由
//
// allowOrigins 为空时只接受同源请求，不注册 CORS
func Init(handlers *handler.Handlers, mode string, allowOrigins []string) *gin.Engine {
	if mode != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	// 创建空白 Gin 引擎（不使用 gin.Default() 以便完全控制中间件）
	engine := gin.New()

	// GinLogger: 记录每个请求的路径、状态码、耗时等
	engine.Use(logger.GinLogger())
	// 参数 true 表示在日志中包含堆栈信息
	engine.Use(logger.GinRecovery(true))

	engine.Use(middleware.SecureHeaders(mode == "dev"))
	engine.Use(middleware.OriginGuard(allowOrigins))

	if len(allowOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		if slices.Contains(allowOrigins, "*") {
			corsConfig.AllowAllOrigins = true
		} else {
			corsConfig.AllowOrigins = allowOrigins
		}
		corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
		engine.Use(cors.New(corsConfig))
	}

	rt := router.NewRouter(handlers)
	rt.RegisterRoutes(engine)

	return engine
}
