package respond

import "time"

// ChatRecord CMS 后端返回的聊天记录
// 使用位置: GET /chats, GET /chats_user/{id}, GET /chats/u/v1
type ChatRecord struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	LastMessage *string    `json:"last_message"`
	CreatedAt   *time.Time `json:"created_at"`
	CountUnRead int        `json:"count_un_read"`
}

// SenderRecord 消息发送者（后端 user 实体的子集）
type SenderRecord struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Login  string `json:"login"`
	RoleID int    `json:"role_id"`
}

// MessageRecord CMS 后端返回的历史消息
// 使用位置: GET /chats/{id}/messages
type MessageRecord struct {
	ID        int64        `json:"id"`
	ChatID    int64        `json:"chat_id"`
	Sender    SenderRecord `json:"sender"`
	Content   string       `json:"content"`
	IsRead    bool         `json:"is_read"`
	IsDeleted bool         `json:"is_deleted"`
	CreatedAt time.Time    `json:"created_at"`
}

// MeRespond 当前用户
// 使用位置: GET /auth/me
type MeRespond struct {
	UserID int64  `json:"user_id"`
	Login  string `json:"login"`
	RoleID int    `json:"role_id"`
}
