package model

import "time"

// SessionStatus 当前聊天会话的连接状态
type SessionStatus string

const (
	StatusIdle         SessionStatus = "Idle"         // 未选择聊天
	StatusLoading      SessionStatus = "Loading"      // 历史加载或首次连接中
	StatusConnected    SessionStatus = "Connected"    // WebSocket 已连接
	StatusDisconnected SessionStatus = "Disconnected" // WebSocket 已断开（错误、服务端关闭或主动关闭）
)

// UpdateType 对外发布的状态变更类型
type UpdateType string

const (
	UpdateChats    UpdateType = "chats"    // 聊天列表重新加载
	UpdateSelected UpdateType = "selected" // 切换了聊天，历史已加载
	UpdateStatus   UpdateType = "status"   // 连接状态变化
	UpdateMessage  UpdateType = "message"  // 一帧事件被应用到消息列表
	UpdateOutbox   UpdateType = "outbox"   // 待确认消息状态变化
)

// Update 会话状态变更事件，发布给控制台订阅者和 Kafka
type Update struct {
	Type        UpdateType    `json:"type"`
	ChatID      int64         `json:"chat_id,omitempty"`
	Action      string        `json:"action,omitempty"`
	MessageID   int64         `json:"message_id,omitempty"`
	Status      SessionStatus `json:"status,omitempty"`
	LastMessage string        `json:"last_message,omitempty"`
	ClientMsgID string        `json:"client_msg_id,omitempty"`
	At          time.Time     `json:"at"`
}

// OutboxState 发出消息的确认状态
type OutboxState string

const (
	OutboxPending OutboxState = "pending" // 已发出，等待服务端回显
	OutboxAcked   OutboxState = "acked"   // 已收到回显，MessageID 有效
	OutboxFailed  OutboxState = "failed"  // 写入失败或超时未回显
)

// OutboxEntry 一条由本客户端发出的 create
type OutboxEntry struct {
	ClientMsgID string      `json:"client_msg_id"`
	ChatID      int64       `json:"chat_id"`
	Content     string      `json:"content"`
	State       OutboxState `json:"state"`
	MessageID   int64       `json:"message_id,omitempty"`
	Error       string      `json:"error,omitempty"`
	SentAt      time.Time   `json:"sent_at"`
}
