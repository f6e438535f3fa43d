// Package router 提供 HTTP 路由注册
// 本文件定义推送 WebSocket 路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterWebSocketRoutes 注册推送连接路由
// 请求示例: ws://127.0.0.1:8090/ws/updates?token=xxx
func (rt *Router) RegisterWebSocketRoutes(rg *gin.RouterGroup) {
	rg.GET("/updates", rt.handlers.Ws.Updates)
}
