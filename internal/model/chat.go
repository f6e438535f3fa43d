package model

import "time"

// Chat 一个聊天会话
// LastMessage/LastMessageTime 是 Messages 尾元素的冗余缓存，不独立生效
type Chat struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	LastMessage     string    `json:"last_message"`
	LastMessageTime time.Time `json:"last_message_time"`
	Messages        []Message `json:"messages"`
	// CountUnRead 列表加载时后端给出的未读数快照（support 场景），自己读过后清零
	CountUnRead int `json:"count_un_read"`
}

// RefreshLast 按当前尾元素重算最后一条消息缓存
// 消息被删空时 LastMessage 置空，时间保持不变
func (c *Chat) RefreshLast() {
	if n := len(c.Messages); n > 0 {
		c.LastMessage = c.Messages[n-1].Text
		c.LastMessageTime = c.Messages[n-1].CreatedAt
		return
	}
	c.LastMessage = ""
}

// IndexOf 返回消息在列表中的下标，不存在返回 -1
func (c *Chat) IndexOf(messageID int64) int {
	for i := range c.Messages {
		if c.Messages[i].ID == messageID {
			return i
		}
	}
	return -1
}

// Clone 深拷贝，供对外返回快照使用
func (c Chat) Clone() Chat {
	if c.Messages != nil {
		msgs := make([]Message, len(c.Messages))
		copy(msgs, c.Messages)
		c.Messages = msgs
	}
	return c
}

// Summary 不带消息列表的拷贝，用于聊天列表
func (c Chat) Summary() Chat {
	c.Messages = nil
	return c
}
