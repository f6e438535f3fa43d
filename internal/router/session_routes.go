// Package router 提供 HTTP 路由注册
// 本文件定义会话和聊天列表相关的路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterSessionRoutes 注册会话相关路由
func (rt *Router) RegisterSessionRoutes(rg *gin.RouterGroup) {
	sessionGroup := rg.Group("/session")
	{
		sessionGroup.GET("", rt.handlers.Chat.GetSession)        // 会话概况
		sessionGroup.POST("/load", rt.handlers.Chat.LoadSession) // 重新加载聊天列表
		sessionGroup.DELETE("", rt.handlers.Chat.CloseSession)   // 关闭连接并清空会话
	}
	chatGroup := rg.Group("/chats")
	{
		chatGroup.GET("", rt.handlers.Chat.ListChats)                      // 聊天列表
		chatGroup.POST("/:id/select", rt.handlers.Chat.SelectChat)         // 切换聊天
		chatGroup.GET("/active/messages", rt.handlers.Chat.ActiveMessages) // 当前聊天消息（按日期分组）
	}
}
