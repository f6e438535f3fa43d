package mq

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cms_chat_console/internal/model"
	"cms_chat_console/pkg/constants"
)

// ChannelBroker 进程内广播，每个订阅者一个带缓冲的通道
// 订阅者消费太慢时丢弃事件，不阻塞发布方
type ChannelBroker struct {
	mu      sync.RWMutex
	clients map[string]chan model.Update
	closed  bool
}

// NewChannelBroker 创建进程内广播器
func NewChannelBroker() *ChannelBroker {
	return &ChannelBroker{clients: make(map[string]chan model.Update)}
}

// Subscribe 注册订阅者，返回事件通道和取消函数
// 取消或 Close 后通道被关闭
func (b *ChannelBroker) Subscribe() (<-chan model.Update, func()) {
	ch := make(chan model.Update, constants.CHANNEL_SIZE)
	id := uuid.NewString()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.clients[id] = ch
	b.mu.Unlock()
	zap.L().Debug("update subscriber registered", zap.String("id", id))

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if c, ok := b.clients[id]; ok {
				delete(b.clients, id)
				close(c)
			}
			b.mu.Unlock()
		})
	}
}

// Publish 广播给所有订阅者
func (b *ChannelBroker) Publish(_ context.Context, u model.Update) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.clients {
		select {
		case ch <- u:
		default:
			zap.L().Warn("update subscriber too slow, dropping", zap.String("id", id), zap.String("type", string(u.Type)))
		}
	}
	return nil
}

// Subscribers 当前订阅者数量
func (b *ChannelBroker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close 关闭所有订阅通道
func (b *ChannelBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for id, ch := range b.clients {
		close(ch)
		delete(b.clients, id)
	}
	return nil
}

var _ Publisher = (*ChannelBroker)(nil)
