package chat

import (
	"cms_chat_console/internal/dto/respond"
	"cms_chat_console/internal/model"
	"cms_chat_console/pkg/constants"
)

// SideOf 按发送者 id 判断消息归属
func SideOf(senderID int64, self model.Actor) model.SenderSide {
	if senderID != 0 && senderID == self.UserID {
		return model.SenderMe
	}
	return model.SenderOther
}

// SenderName 特权角色显示固定标签，否则显示 login
func SenderName(roleID int, login, privilegedLabel string) string {
	if roleID == constants.ADMIN_ROLE_ID {
		if privilegedLabel == "" {
			return constants.DEFAULT_ADMIN_LABEL
		}
		return privilegedLabel
	}
	if login == "" {
		return constants.UNKNOWN_LOGIN_LABEL
	}
	return login
}

// MessageFromRecord 将一条历史记录转换为 Message
// 记录里带发送者 id 时按 id 判断归属；老接口不返回 id，退化为按 role_id 比较
func MessageFromRecord(rec respond.MessageRecord, self model.Actor, privilegedLabel string) model.Message {
	side := SideOf(rec.Sender.ID, self)
	if rec.Sender.ID == 0 && rec.Sender.RoleID == self.RoleID {
		side = model.SenderMe
	}
	return model.Message{
		ID:         rec.ID,
		Text:       rec.Content,
		Sender:     side,
		SenderID:   rec.Sender.ID,
		SenderName: SenderName(rec.Sender.RoleID, rec.Sender.Login, privilegedLabel),
		IsRead:     rec.IsRead,
		CreatedAt:  rec.CreatedAt,
	}
}

// MessagesFromRecords 转换整段历史，跳过软删除的记录，保持后端返回的顺序
func MessagesFromRecords(recs []respond.MessageRecord, self model.Actor, privilegedLabel string) []model.Message {
	msgs := make([]model.Message, 0, len(recs))
	for _, rec := range recs {
		if rec.IsDeleted {
			continue
		}
		msgs = append(msgs, MessageFromRecord(rec, self, privilegedLabel))
	}
	return msgs
}

// ChatFromRecord 将列表记录转换为不带消息的 Chat
func ChatFromRecord(rec respond.ChatRecord) model.Chat {
	c := model.Chat{
		ID:          rec.ID,
		Name:        rec.Name,
		Messages:    []model.Message{},
		CountUnRead: rec.CountUnRead,
	}
	if rec.LastMessage != nil {
		c.LastMessage = *rec.LastMessage
	}
	if rec.CreatedAt != nil {
		c.LastMessageTime = *rec.CreatedAt
	}
	return c
}

// WithHistory 用历史消息替换聊天内容并重算最后一条消息缓存
func WithHistory(c model.Chat, msgs []model.Message) model.Chat {
	c.Messages = msgs
	if len(msgs) > 0 {
		c.RefreshLast()
	} else {
		c.LastMessage = ""
	}
	c.CountUnRead = 0
	return c
}
