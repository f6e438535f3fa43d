// Package websocket 聊天 WebSocket 的客户端连接与控制台推送连接
// link.go 核心职责：维持到聊天服务的单条连接
// 状态机：Disconnected -> Connecting -> Connected -> Disconnected，断线后按指数退避重连
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cms_chat_console/internal/model"
	"cms_chat_console/pkg/constants"
	"cms_chat_console/pkg/errorx"
)

// LinkState 连接状态
type LinkState int

const (
	StateDisconnected LinkState = iota
	StateConnecting
	StateConnected
)

func (s LinkState) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	}
	return "Disconnected"
}

// StateEvent 一次状态变化
type StateEvent struct {
	State       LinkState
	Attempt     int           // 本轮退避中的第几次拨号，从 1 开始
	Reconnected bool          // Connected 时有效：不是第一次连上
	RetryIn     time.Duration // Disconnected 时有效：下次重连的等待时间，0 表示不再重连
	Err         error
}

// BackoffConfig 重连退避参数
type BackoffConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration // 0 表示一直重连
	Multiplier      float64
}

// LinkOptions 连接参数
type LinkOptions struct {
	URL     string
	Header  http.Header
	Backoff BackoffConfig
	Dialer  *websocket.Dialer // 为空时使用带握手超时的默认 Dialer
}

// Link ChatLink 的 gorilla/websocket 实现
type Link struct {
	opts     LinkOptions
	listener Listener

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	start  sync.Once

	mu    sync.Mutex // 保护 conn 与写操作
	conn  *websocket.Conn
	state LinkState
}

// NewLink 创建连接，调用 Start 后才开始拨号
func NewLink(opts LinkOptions, l Listener) *Link {
	if opts.Dialer == nil {
		opts.Dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: constants.WS_HANDSHAKE_TIMEOUT,
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Link{
		opts:     opts,
		listener: l,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start 启动连接循环
func (l *Link) Start() {
	l.start.Do(func() {
		go l.run()
	})
}

// State 当前连接状态
func (l *Link) State() LinkState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Send 写出一帧 JSON
func (l *Link) Send(ctx context.Context, f model.Frame) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return errorx.ErrNotConnected
	}
	deadline := time.Now().Add(constants.WS_WRITE_WAIT)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = l.conn.SetWriteDeadline(deadline)
	if err := l.conn.WriteJSON(f); err != nil {
		return errorx.Wrapf(err, errorx.CodeNotConnected, "写入 %s 帧失败", f.Action)
	}
	return nil
}

// Close 关闭连接并等待循环退出
func (l *Link) Close() {
	l.cancel()
	l.mu.Lock()
	if l.conn != nil {
		_ = l.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = l.conn.Close()
	}
	l.mu.Unlock()
	// 从未 Start 的连接没有循环可等
	started := true
	l.start.Do(func() {
		started = false
		close(l.done)
	})
	if started {
		<-l.done
	}
}

// run 拨号、读取、退避重连，直到 Close
func (l *Link) run() {
	defer close(l.done)

	b := l.newBackOff()
	attempt := 0
	connects := 0
	for {
		attempt++
		l.emit(StateEvent{State: StateConnecting, Attempt: attempt})

		conn, _, err := l.opts.Dialer.DialContext(l.ctx, l.opts.URL, l.opts.Header)
		if err == nil {
			b.Reset()
			attempt = 0
			connects++
			if !l.attach(conn) {
				_ = conn.Close()
				l.emit(StateEvent{State: StateDisconnected})
				return
			}
			l.emit(StateEvent{State: StateConnected, Reconnected: connects > 1})
			err = l.readLoop(conn)
			l.detach(conn)
		}

		if l.ctx.Err() != nil {
			l.emit(StateEvent{State: StateDisconnected})
			return
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			zap.L().Warn("chat link gave up reconnecting", zap.String("url", l.opts.URL), zap.Error(err))
			l.emit(StateEvent{State: StateDisconnected, Attempt: attempt, Err: err})
			return
		}
		zap.L().Info("chat link disconnected", zap.String("url", l.opts.URL), zap.Duration("retry_in", wait), zap.Error(err))
		l.emit(StateEvent{State: StateDisconnected, Attempt: attempt, RetryIn: wait, Err: err})

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-l.ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (l *Link) newBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	cfg := l.opts.Backoff
	if cfg.InitialInterval > 0 {
		eb.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		eb.MaxInterval = cfg.MaxInterval
	}
	if cfg.Multiplier >= 1 {
		eb.Multiplier = cfg.Multiplier
	}
	eb.MaxElapsedTime = cfg.MaxElapsedTime
	eb.Reset()
	return backoff.WithContext(eb, l.ctx)
}

// attach 已关闭的连接不再挂上新 conn
func (l *Link) attach(conn *websocket.Conn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ctx.Err() != nil {
		return false
	}
	l.conn = conn
	return true
}

func (l *Link) detach(conn *websocket.Conn) {
	l.mu.Lock()
	if l.conn == conn {
		l.conn = nil
	}
	l.mu.Unlock()
	_ = conn.Close()
}

// readLoop 顺序读取并分发帧，连接出错或关闭时返回
func (l *Link) readLoop(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var f model.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			zap.L().Warn("invalid chat frame", zap.ByteString("payload", data), zap.Error(err))
			continue
		}
		if l.ctx.Err() != nil {
			return l.ctx.Err()
		}
		l.listener.OnFrame(l, f)
	}
}

func (l *Link) emit(ev StateEvent) {
	l.mu.Lock()
	l.state = ev.State
	l.mu.Unlock()
	l.listener.OnState(l, ev)
}

var _ ChatLink = (*Link)(nil)
