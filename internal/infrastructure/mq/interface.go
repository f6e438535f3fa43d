// Package mq 会话状态变更的分发
// channel 模式只在进程内广播给控制台订阅者，kafka 模式额外写入 Kafka 主题
package mq

import (
	"context"

	"cms_chat_console/internal/model"
)

// Publisher 状态变更发布接口
// Publish 不应长时间阻塞：调用方可能持有会话锁
type Publisher interface {
	Publish(ctx context.Context, u model.Update) error
	Close() error
}
