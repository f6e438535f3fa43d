// Package router 提供 HTTP 路由注册
// 本文件定义消息相关的路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterMessageRoutes 注册消息相关路由，操作对象始终是当前聊天
func (rt *Router) RegisterMessageRoutes(rg *gin.RouterGroup) {
	messageGroup := rg.Group("/messages")
	{
		messageGroup.POST("", rt.handlers.Chat.SendMessage)         // 发送
		messageGroup.PUT("/:id", rt.handlers.Chat.EditMessage)      // 编辑
		messageGroup.DELETE("/:id", rt.handlers.Chat.DeleteMessage) // 删除
	}
	rg.GET("/outbox", rt.handlers.Chat.Outbox) // 发出消息的确认状态
}
