// Package handler 提供控制台 HTTP 请求处理器
// 本文件处理会话、聊天列表和消息相关的 API 请求
package handler

import (
	"time"

	"cms_chat_console/internal/dao/backend"
	"cms_chat_console/internal/dto/request"
	"cms_chat_console/internal/dto/respond"
	"cms_chat_console/internal/service"
	"cms_chat_console/internal/service/chat"

	"github.com/gin-gonic/gin"
)

// ChatHandler 聊天请求处理器
// 通过构造函数注入 ChatSessionService
type ChatHandler struct {
	svc          service.ChatSessionService
	defaultScope backend.Scope
	now          func() time.Time
	loc          *time.Location
}

// NewChatHandler 创建聊天处理器实例
func NewChatHandler(svc service.ChatSessionService, defaultScope backend.Scope, now func() time.Time, loc *time.Location) *ChatHandler {
	return &ChatHandler{svc: svc, defaultScope: defaultScope, now: now, loc: loc}
}

// GetSession 当前会话概况
// GET /api/session
// 响应: respond.SessionRespond
func (h *ChatHandler) GetSession(c *gin.Context) {
	HandleSuccess(c, respond.SessionRespond{
		Status:       h.svc.Status(),
		ActiveChatID: h.svc.ActiveChatID(),
		Actor:        h.svc.Actor(),
		ChatCount:    len(h.svc.Chats()),
	})
}

// LoadSession 重新加载当前用户和聊天列表
// POST /api/session/load
// 请求体: request.LoadSessionRequest（可为空，使用配置的范围）
// 响应: []respond.ChatSummaryRespond
func (h *ChatHandler) LoadSession(c *gin.Context) {
	scope := h.defaultScope
	if c.Request.ContentLength > 0 {
		var req request.LoadSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleParamError(c, err)
			return
		}
		if req.Scope != "" {
			s, err := backend.ParseScope(req.Scope, req.LeakedID)
			if err != nil {
				HandleError(c, err)
				return
			}
			scope = s
		}
	}
	if _, err := h.svc.Load(c.Request.Context(), scope); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, h.summaries())
}

// CloseSession 关闭连接并清空会话
// DELETE /api/session
func (h *ChatHandler) CloseSession(c *gin.Context) {
	h.svc.Close()
	HandleSuccess(c, nil)
}

// ListChats 聊天列表
// GET /api/chats
// 响应: []respond.ChatSummaryRespond
func (h *ChatHandler) ListChats(c *gin.Context) {
	HandleSuccess(c, h.summaries())
}

func (h *ChatHandler) summaries() []respond.ChatSummaryRespond {
	now := h.now()
	active := h.svc.ActiveChatID()
	chats := h.svc.Chats()
	out := make([]respond.ChatSummaryRespond, 0, len(chats))
	for _, ch := range chats {
		out = append(out, respond.ChatSummaryRespond{
			ID:              ch.ID,
			Name:            ch.Name,
			LastMessage:     ch.LastMessage,
			LastMessageTime: ch.LastMessageTime,
			LastMessageAt:   chat.FormatDateOrTime(ch.LastMessageTime, now, h.loc),
			CountUnRead:     ch.CountUnRead,
			Active:          ch.ID == active,
		})
	}
	return out
}

// SelectChat 切换到指定聊天
// POST /api/chats/:id/select
// 响应: respond.ActiveMessagesRespond
func (h *ChatHandler) SelectChat(c *gin.Context) {
	var req request.ChatURIRequest
	if err := c.ShouldBindUri(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if _, err := h.svc.Select(c.Request.Context(), req.ChatID); err != nil {
		HandleError(c, err)
		return
	}
	h.ActiveMessages(c)
}

// ActiveMessages 当前聊天的消息，按日期分组
// GET /api/chats/active/messages
// 响应: respond.ActiveMessagesRespond
func (h *ChatHandler) ActiveMessages(c *gin.Context) {
	active, err := h.svc.ActiveChat()
	if err != nil {
		HandleError(c, err)
		return
	}
	groups := chat.GroupByDay(active.Messages, h.now(), h.loc)
	data := respond.ActiveMessagesRespond{
		ChatID:      active.ID,
		Name:        active.Name,
		Status:      string(h.svc.Status()),
		LastMessage: active.LastMessage,
		Groups:      make([]respond.DayGroupRespond, 0, len(groups)),
	}
	for _, g := range groups {
		data.Groups = append(data.Groups, respond.DayGroupRespond{Key: g.Key, Label: g.Label, Messages: g.Messages})
	}
	HandleSuccess(c, data)
}

// SendMessage 在当前聊天发送消息
// POST /api/messages
// 请求体: request.SendMessageRequest
// 响应: model.OutboxEntry
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req request.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	entry, err := h.svc.Send(c.Request.Context(), req.Content)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, entry)
}

// EditMessage 编辑消息
// PUT /api/messages/:id
// 请求体: request.EditMessageRequest
func (h *ChatHandler) EditMessage(c *gin.Context) {
	var uri request.MessageURIRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		HandleParamError(c, err)
		return
	}
	var req request.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.svc.Edit(c.Request.Context(), uri.MessageID, req.Content); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// DeleteMessage 删除消息
// DELETE /api/messages/:id
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	var uri request.MessageURIRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.svc.Delete(c.Request.Context(), uri.MessageID); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// Outbox 发出消息的确认状态
// GET /api/outbox
// 响应: []model.OutboxEntry
func (h *ChatHandler) Outbox(c *gin.Context) {
	HandleSuccess(c, h.svc.Outbox())
}
