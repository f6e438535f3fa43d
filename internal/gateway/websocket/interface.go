package websocket

import (
	"context"

	"cms_chat_console/internal/model"
)

// ChatLink 一个聊天 WebSocket 连接的抽象
// session.Manager 只依赖此接口，测试中可以替换为假实现
type ChatLink interface {
	// Start 启动连接循环（拨号、读、断线重连），只能调用一次
	Start()
	// Send 写出一帧，未连接时返回 errorx.ErrNotConnected
	Send(ctx context.Context, f model.Frame) error
	// Close 关闭连接并等待循环退出，之后不再有任何回调
	// 不能在 Listener 回调中调用
	Close()
	// State 当前连接状态
	State() LinkState
}

// Listener 连接事件回调，全部在连接自己的读协程中按顺序调用
type Listener interface {
	// OnFrame 收到一帧事件
	OnFrame(link ChatLink, f model.Frame)
	// OnState 连接状态变化
	OnState(link ChatLink, ev StateEvent)
}

// LinkFactory 按 (chat_id, user_id) 创建连接
type LinkFactory func(chatID, userID int64, l Listener) ChatLink
