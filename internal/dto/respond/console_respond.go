package respond

import (
	"time"

	"cms_chat_console/internal/model"
)

// SessionRespond 控制台 GET /api/session 响应
type SessionRespond struct {
	Status       model.SessionStatus `json:"status"`
	ActiveChatID int64               `json:"active_chat_id,omitempty"`
	Actor        *model.Actor        `json:"actor,omitempty"`
	ChatCount    int                 `json:"chat_count"`
}

// ChatSummaryRespond 聊天列表中的一项
type ChatSummaryRespond struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	LastMessage     string    `json:"last_message"`
	LastMessageTime time.Time `json:"last_message_time"`
	LastMessageAt   string    `json:"last_message_at"` // HH:MM 或 dd.mm.yyyy
	CountUnRead     int       `json:"count_un_read"`
	Active          bool      `json:"active"`
}

// DayGroupRespond 按日期分组后的一组消息
type DayGroupRespond struct {
	Key      string          `json:"key"`   // dd.mm.yyyy
	Label    string          `json:"label"` // "Today" 或 dd.mm.yyyy
	Messages []model.Message `json:"messages"`
}

// ActiveMessagesRespond 控制台 GET /api/chats/active/messages 响应
type ActiveMessagesRespond struct {
	ChatID      int64             `json:"chat_id"`
	Name        string            `json:"name"`
	Status      string            `json:"status"`
	LastMessage string            `json:"last_message"`
	Groups      []DayGroupRespond `json:"groups"`
}
