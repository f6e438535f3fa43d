// Package handler 提供控制台 HTTP 请求处理器
// 本文件处理推送 WebSocket 的升级请求
package handler

import (
	"net/http"

	ws "cms_chat_console/internal/gateway/websocket"
	"cms_chat_console/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WsHandler 推送连接处理器
type WsHandler struct {
	updates      UpdateSubscriber
	allowOrigins []string
}

// NewWsHandler 创建推送处理器实例，allowOrigins 与 CORS 白名单一致
func NewWsHandler(updates UpdateSubscriber, allowOrigins []string) *WsHandler {
	return &WsHandler{updates: updates, allowOrigins: allowOrigins}
}

// Updates 升级为 WebSocket 并持续推送会话状态变更
// GET /ws/updates
func (h *WsHandler) Updates(c *gin.Context) {
	ch, cancel := h.updates.Subscribe()
	checkOrigin := func(r *http.Request) bool {
		return middleware.OriginAllowed(r, h.allowOrigins)
	}
	if err := ws.ServeUpdates(c.Writer, c.Request, ch, cancel, checkOrigin); err != nil {
		zap.L().Warn("push upgrade failed", zap.String("remote", c.ClientIP()), zap.Error(err))
	}
}
