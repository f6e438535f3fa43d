package model

// 帧动作，双向通用
const (
	ActionCreate       = "create"
	ActionEdit         = "edit"
	ActionDelete       = "delete"
	ActionReadMessages = "read_messages"
)

// Frame 聊天 WebSocket 帧（JSON，双向）
// 协议没有 ack/序号字段；ClientMsgID 是客户端扩展字段，后端不认识时会被忽略
type Frame struct {
	Action      string `json:"action"`
	Content     string `json:"content,omitempty"`
	MessageID   int64  `json:"message_id,omitempty"`
	ChatID      int64  `json:"chat_id,omitempty"`
	SenderID    int64  `json:"sender_id,omitempty"`
	RoleID      int    `json:"role_id,omitempty"`
	Login       string `json:"login,omitempty"`
	ClientMsgID string `json:"client_msg_id,omitempty"`
}
