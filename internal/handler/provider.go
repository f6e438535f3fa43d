// Package handler 提供控制台 HTTP 请求处理器
// 本文件定义 Handler 聚合结构和构造函数
package handler

import (
	"time"

	"cms_chat_console/internal/dao/backend"
	"cms_chat_console/internal/model"
	"cms_chat_console/internal/service"
)

// UpdateSubscriber 可订阅会话状态变更的来源（进程内 broker）
type UpdateSubscriber interface {
	Subscribe() (<-chan model.Update, func())
}

// Handlers 聚合所有 Handler 实例，Router 层通过此结构访问各个 Handler
type Handlers struct {
	Chat *ChatHandler
	Ws   *WsHandler
}

// NewHandlers 创建并注入所有 Handler 实例
// defaultScope: 请求未指定范围时使用的聊天列表范围
// allowOrigins: 允许握手推送连接的跨域来源
func NewHandlers(svc *service.Services, updates UpdateSubscriber, defaultScope backend.Scope, allowOrigins []string) *Handlers {
	return &Handlers{
		Chat: NewChatHandler(svc.Session, defaultScope, time.Now, time.Local),
		Ws:   NewWsHandler(updates, allowOrigins),
	}
}
