// Package backend 定义 CMS 后端 REST 接口的访问层
// Service 层依赖 Repository 接口，具体实现基于 fasthttp
package backend

import (
	"context"

	"cms_chat_console/internal/dto/respond"
)

// ChatRepository CMS 后端聊天数据访问接口
type ChatRepository interface {
	// Me 获取当前登录用户
	Me(ctx context.Context) (*respond.MeRespond, error)
	// ListChats 按范围获取聊天列表（不含消息）
	ListChats(ctx context.Context, scope Scope) ([]respond.ChatRecord, error)
	// GetMessages 获取聊天的完整历史，按后端返回顺序
	GetMessages(ctx context.Context, chatID int64) ([]respond.MessageRecord, error)
}
