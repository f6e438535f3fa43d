// Package chat 实现了聊天核心的纯逻辑部分
// reconciler.go
// 核心职责：把一帧 WebSocket 事件应用到聊天的消息列表上
// Apply 不持有状态、不做 IO，调用方（session.Manager）负责串行调用和日志
package chat

import (
	"time"

	"cms_chat_console/internal/model"
)

// Outcome 一帧事件的应用结果
type Outcome int

const (
	Applied     Outcome = iota // 已应用，状态发生变化
	Ignored                    // 未知 action，丢弃
	Duplicate                  // create 的 message_id 已存在（重复投递）
	NotFound                   // edit/delete 的 message_id 不存在
	ForeignChat                // 帧的 chat_id 与当前聊天不一致
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Ignored:
		return "ignored"
	case Duplicate:
		return "duplicate"
	case NotFound:
		return "not_found"
	case ForeignChat:
		return "foreign_chat"
	}
	return "unknown"
}

// Options Apply 的可注入依赖
type Options struct {
	// Now create 事件没有时间戳，使用本地接收时间
	Now func() time.Time
	// PrivilegedLabel 特权角色发送者的显示名
	PrivilegedLabel string
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Apply 将 frame 应用到 c 上，返回新的聊天状态
// 入参 c 不会被修改：任何变更都作用在消息切片的拷贝上
func Apply(c model.Chat, f model.Frame, self model.Actor, opts Options) (model.Chat, Outcome) {
	if f.ChatID != 0 && c.ID != 0 && f.ChatID != c.ID {
		return c, ForeignChat
	}

	switch f.Action {
	case model.ActionCreate:
		return applyCreate(c, f, self, opts)
	case model.ActionEdit:
		return applyEdit(c, f)
	case model.ActionDelete:
		return applyDelete(c, f)
	case model.ActionReadMessages:
		return applyRead(c, f, self)
	default:
		return c, Ignored
	}
}

// applyCreate 追加到队尾，协议保证 create 按时间顺序到达
func applyCreate(c model.Chat, f model.Frame, self model.Actor, opts Options) (model.Chat, Outcome) {
	if f.MessageID != 0 && c.IndexOf(f.MessageID) >= 0 {
		return c, Duplicate
	}
	msg := model.Message{
		ID:         f.MessageID,
		Text:       f.Content,
		Sender:     SideOf(f.SenderID, self),
		SenderID:   f.SenderID,
		SenderName: SenderName(f.RoleID, f.Login, opts.PrivilegedLabel),
		IsRead:     false,
		CreatedAt:  opts.now(),
	}
	msgs := make([]model.Message, len(c.Messages), len(c.Messages)+1)
	copy(msgs, c.Messages)
	c.Messages = append(msgs, msg)
	c.RefreshLast()
	return c, Applied
}

func applyEdit(c model.Chat, f model.Frame) (model.Chat, Outcome) {
	idx := c.IndexOf(f.MessageID)
	if idx < 0 {
		return c, NotFound
	}
	c = c.Clone()
	c.Messages[idx].Text = f.Content
	c.RefreshLast()
	return c, Applied
}

func applyDelete(c model.Chat, f model.Frame) (model.Chat, Outcome) {
	idx := c.IndexOf(f.MessageID)
	if idx < 0 {
		return c, NotFound
	}
	msgs := make([]model.Message, 0, len(c.Messages)-1)
	msgs = append(msgs, c.Messages[:idx]...)
	msgs = append(msgs, c.Messages[idx+1:]...)
	c.Messages = msgs
	c.RefreshLast()
	return c, Applied
}

// applyRead 自己触发的已读：对方的消息变为已读；对方触发的已读：自己发的消息变为已读
func applyRead(c model.Chat, f model.Frame, self model.Actor) (model.Chat, Outcome) {
	side := model.SenderMe
	c = c.Clone()
	if f.SenderID == self.UserID {
		side = model.SenderOther
		c.CountUnRead = 0
	}
	for i := range c.Messages {
		if c.Messages[i].Sender == side {
			c.Messages[i].IsRead = true
		}
	}
	return c, Applied
}
