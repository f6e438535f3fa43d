// Package service 定义业务层接口
// Handler 层和 CLI 只依赖这里的接口
package service

import (
	"context"

	"cms_chat_console/internal/dao/backend"
	"cms_chat_console/internal/model"
)

// ChatSessionService 聊天会话业务接口
// 一个进程内只有一个会话，同一时刻最多一个聊天连接
type ChatSessionService interface {
	// Load 获取当前用户和聊天列表
	Load(ctx context.Context, scope backend.Scope) ([]model.Chat, error)
	// Select 切换到指定聊天，拉取历史并建立连接
	Select(ctx context.Context, chatID int64) (model.Chat, error)
	// Disconnect 关闭当前聊天连接
	Disconnect()
	// Close 关闭连接并清空会话
	Close()

	// Status 当前连接状态
	Status() model.SessionStatus
	// Actor 当前用户，未加载时为 nil
	Actor() *model.Actor
	// Scope 最近一次加载的范围
	Scope() backend.Scope
	// ActiveChatID 当前聊天 id，未选择时为 0
	ActiveChatID() int64
	// Chats 聊天列表（不含消息）
	Chats() []model.Chat
	// ActiveChat 当前聊天及其消息
	ActiveChat() (model.Chat, error)

	// Send 发送新消息
	Send(ctx context.Context, content string) (model.OutboxEntry, error)
	// Edit 编辑消息
	Edit(ctx context.Context, messageID int64, content string) error
	// Delete 删除消息
	Delete(ctx context.Context, messageID int64) error
	// Outbox 发出消息的确认状态
	Outbox() []model.OutboxEntry
}
