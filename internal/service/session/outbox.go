package session

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	ws "cms_chat_console/internal/gateway/websocket"
	"cms_chat_console/internal/model"
	"cms_chat_console/pkg/constants"
	"cms_chat_console/pkg/errorx"
)

// Send 在当前聊天发送一条消息
// 消息列表不做乐观插入，等服务端回显 create 后才出现；outbox 记录这条消息的确认状态
func (m *Manager) Send(ctx context.Context, content string) (model.OutboxEntry, error) {
	if err := checkContent(content); err != nil {
		return model.OutboxEntry{}, err
	}
	if err := m.limiter.Wait(ctx); err != nil {
		return model.OutboxEntry{}, errorx.Wrap(err, errorx.CodeServerBusy, "发送被取消")
	}

	m.mu.Lock()
	link, chatID, err := m.activeLinkLocked()
	if err != nil {
		m.mu.Unlock()
		return model.OutboxEntry{}, err
	}
	entry := &model.OutboxEntry{
		ClientMsgID: uuid.NewString(),
		ChatID:      chatID,
		Content:     content,
		State:       model.OutboxPending,
		SentAt:      m.opts.Now(),
	}
	m.appendOutboxLocked(entry)
	m.mu.Unlock()

	frame := model.Frame{Action: model.ActionCreate, Content: content, ClientMsgID: entry.ClientMsgID}
	if err := link.Send(ctx, frame); err != nil {
		zap.L().Warn("send create failed", zap.Int64("chat_id", chatID), zap.String("client_msg_id", entry.ClientMsgID), zap.Error(err))
		m.mu.Lock()
		m.failOutboxLocked(entry, err.Error())
		snapshot := *entry
		m.mu.Unlock()
		return snapshot, err
	}

	id := entry.ClientMsgID
	time.AfterFunc(m.opts.AckTimeout, func() { m.expireOutbox(id) })

	m.mu.Lock()
	defer m.mu.Unlock()
	return *entry, nil
}

// Edit 修改当前聊天中的一条消息，结果以服务端回显为准
func (m *Manager) Edit(ctx context.Context, messageID int64, content string) error {
	if err := checkContent(content); err != nil {
		return err
	}
	return m.sendForMessage(ctx, model.Frame{Action: model.ActionEdit, MessageID: messageID, Content: content})
}

// Delete 删除当前聊天中的一条消息，结果以服务端回显为准
func (m *Manager) Delete(ctx context.Context, messageID int64) error {
	return m.sendForMessage(ctx, model.Frame{Action: model.ActionDelete, MessageID: messageID})
}

func (m *Manager) sendForMessage(ctx context.Context, f model.Frame) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return errorx.Wrap(err, errorx.CodeServerBusy, "发送被取消")
	}
	m.mu.Lock()
	link, chatID, err := m.activeLinkLocked()
	if err == nil && m.chats[m.index[chatID]].IndexOf(f.MessageID) < 0 {
		err = errorx.Newf(errorx.CodeNotFound, "消息 %d 不在聊天 %d 中", f.MessageID, chatID)
	}
	m.mu.Unlock()
	if err != nil {
		return err
	}
	if err := link.Send(ctx, f); err != nil {
		zap.L().Warn("send frame failed", zap.String("action", f.Action), zap.Int64("message_id", f.MessageID), zap.Error(err))
		return err
	}
	return nil
}

func (m *Manager) activeLinkLocked() (ws.ChatLink, int64, error) {
	if m.activeID == 0 || m.link == nil {
		return nil, 0, errorx.ErrNoActiveChat
	}
	return m.link, m.activeID, nil
}

// checkContent 只用去掉空白后的内容判空，发出去的仍是原文
func checkContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errorx.New(errorx.CodeInvalidParam, "消息内容不能为空")
	}
	if utf8.RuneCountInString(content) > constants.MAX_CONTENT_LENGTH {
		return errorx.Newf(errorx.CodeInvalidParam, "消息内容超过 %d 字符", constants.MAX_CONTENT_LENGTH)
	}
	return nil
}

// Outbox 发出消息的确认状态快照，按发送顺序
func (m *Manager) Outbox() []model.OutboxEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.OutboxEntry, 0, len(m.outbox))
	for _, e := range m.outbox {
		out = append(out, *e)
	}
	return out
}

// appendOutboxLocked 超出上限时丢弃最早的已结束条目
func (m *Manager) appendOutboxLocked(e *model.OutboxEntry) {
	m.outbox = append(m.outbox, e)
	for len(m.outbox) > constants.MAX_OUTBOX_ENTRIES {
		dropped := false
		for i, old := range m.outbox {
			if old.State != model.OutboxPending {
				m.outbox = append(m.outbox[:i], m.outbox[i+1:]...)
				dropped = true
				break
			}
		}
		if !dropped {
			m.outbox = m.outbox[1:]
		}
	}
	m.publishOutboxLocked(e)
}

// ackOutboxLocked 用自己发出的 create 回显确认 outbox 条目
// 优先按 client_msg_id 匹配；服务端不回传该字段时，匹配同一聊天中内容相同的最早待确认条目
func (m *Manager) ackOutboxLocked(f model.Frame) {
	if m.actor == nil || f.SenderID != m.actor.UserID {
		return
	}
	var hit *model.OutboxEntry
	if f.ClientMsgID != "" {
		for _, e := range m.outbox {
			if e.ClientMsgID == f.ClientMsgID && e.State == model.OutboxPending {
				hit = e
				break
			}
		}
	}
	if hit == nil {
		for _, e := range m.outbox {
			if e.State == model.OutboxPending && e.ChatID == m.activeID && e.Content == f.Content {
				hit = e
				break
			}
		}
	}
	if hit == nil {
		return
	}
	hit.State = model.OutboxAcked
	hit.MessageID = f.MessageID
	m.publishOutboxLocked(hit)
}

func (m *Manager) failOutboxLocked(e *model.OutboxEntry, reason string) {
	if e.State != model.OutboxPending {
		return
	}
	e.State = model.OutboxFailed
	e.Error = reason
	m.publishOutboxLocked(e)
}

// expireOutbox 超时未确认的条目标记为失败
func (m *Manager) expireOutbox(clientMsgID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.outbox {
		if e.ClientMsgID == clientMsgID {
			if e.State == model.OutboxPending {
				zap.L().Warn("outbox entry not acknowledged", zap.String("client_msg_id", clientMsgID), zap.Int64("chat_id", e.ChatID))
			}
			m.failOutboxLocked(e, "ack timeout")
			return
		}
	}
}

func (m *Manager) publishOutboxLocked(e *model.OutboxEntry) {
	m.publishLocked(model.Update{
		Type:        model.UpdateOutbox,
		ChatID:      e.ChatID,
		MessageID:   e.MessageID,
		ClientMsgID: e.ClientMsgID,
	})
}
