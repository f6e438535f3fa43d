// Package model 定义聊天核心的内存实体
// 本文件定义消息模型，对应聊天窗口中的一行
package model

import "time"

// SenderSide 消息归属方，按当前用户 id 与消息来源 id 比较得出，不是后端字段
type SenderSide string

const (
	SenderMe    SenderSide = "me"
	SenderOther SenderSide = "other"
)

// Message 单条聊天消息
type Message struct {
	// ID 后端分配的消息 id，在所属聊天内唯一
	ID int64 `json:"id"`

	// Text 当前内容，edit 事件会修改
	Text string `json:"text"`

	// Sender 相对当前用户的归属方（me/other）
	Sender SenderSide `json:"sender"`

	// SenderID 原始发送者 id；历史记录中缺失时为 0
	SenderID int64 `json:"sender_id,omitempty"`

	// SenderName 显示名：特权角色为固定标签，否则为 login
	SenderName string `json:"sender_name"`

	// IsRead 已读状态，read_messages 事件会批量修改
	IsRead bool `json:"is_read"`

	// CreatedAt 创建时间，设置后不再变化
	CreatedAt time.Time `json:"created_at"`
}

// IsMine 是否由当前用户发送
func (m Message) IsMine() bool {
	return m.Sender == SenderMe
}
