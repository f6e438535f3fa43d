// Package router 提供 HTTP 路由注册
// 本文件是路由注册的入口，聚合所有子模块的路由
package router

import (
	"cms_chat_console/internal/handler"
	"cms_chat_console/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

// Router 持有 Handler 聚合，供各模块注册路由
type Router struct {
	handlers *handler.Handlers
}

// NewRouter 创建路由管理器
func NewRouter(handlers *handler.Handlers) *Router {
	return &Router{handlers: handlers}
}

// RegisterRoutes 注册所有路由
// 在 https_server.Init() 中调用，所有接口都经过 JWTAuth（未配置密钥时放行）
func (rt *Router) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) { handler.HandleSuccess(c, "ok") })

	api := r.Group("/api", middleware.JWTAuth())
	rt.RegisterSessionRoutes(api) // 会话与聊天列表
	rt.RegisterMessageRoutes(api) // 消息收发

	wsGroup := r.Group("/ws", middleware.JWTAuth())
	rt.RegisterWebSocketRoutes(wsGroup) // 推送连接
}
