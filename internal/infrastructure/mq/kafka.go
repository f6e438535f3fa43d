package mq

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"cms_chat_console/internal/config"
	"cms_chat_console/internal/model"
	"cms_chat_console/pkg/errorx"
)

// messageWriter kafka.Writer 的最小接口，便于测试替换
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher 把状态变更写入 Kafka 主题
// 以 chat_id 为 key，同一聊天的事件落在同一分区，保持顺序
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher 按配置创建异步写入的 Publisher
// Async 模式下 WriteMessages 立即返回，写入错误在 Completion 回调中记录
func NewKafkaPublisher(cfg config.KafkaConfig) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.HostPort),
		Topic:                  cfg.EventTopic,
		Balancer:               &kafka.Hash{},
		WriteTimeout:           cfg.Timeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Async:                  true,
		BatchTimeout:           50 * time.Millisecond,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				zap.L().Error("kafka write updates failed", zap.Int("count", len(messages)), zap.Error(err))
			}
		},
	}
	return &KafkaPublisher{writer: w, topic: cfg.EventTopic}
}

// Publish 序列化并写入一条事件
func (k *KafkaPublisher) Publish(ctx context.Context, u model.Update) error {
	value, err := json.Marshal(u)
	if err != nil {
		return errorx.Wrap(err, errorx.CodeServerBusy, "marshal update")
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(u.ChatID, 10)),
		Value: value,
		Time:  u.At,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(u.Type)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return errorx.Wrapf(err, errorx.CodeServerBusy, "kafka write topic %s", k.topic)
	}
	return nil
}

// Close 刷出缓冲中的消息并关闭 writer
func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}

var _ Publisher = (*KafkaPublisher)(nil)

// messageReader kafka.Reader 的最小接口
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaSubscriber 从事件主题读取状态变更（events 命令使用）
type KafkaSubscriber struct {
	reader messageReader
}

// NewKafkaSubscriber 创建读取者
// groupID 为空时不提交 offset，从最新位置开始读
func NewKafkaSubscriber(cfg config.KafkaConfig, groupID string) *KafkaSubscriber {
	rc := kafka.ReaderConfig{
		Brokers:     []string{cfg.HostPort},
		Topic:       cfg.EventTopic,
		StartOffset: kafka.LastOffset,
		MaxWait:     time.Second,
	}
	if groupID != "" {
		rc.GroupID = groupID
		rc.CommitInterval = time.Second
	}
	return &KafkaSubscriber{reader: kafka.NewReader(rc)}
}

// Run 持续读取直到 ctx 取消，无法解析的消息跳过
func (s *KafkaSubscriber) Run(ctx context.Context, handle func(model.Update)) error {
	for {
		msg, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return errorx.Wrap(err, errorx.CodeServerBusy, "kafka read updates")
		}
		var u model.Update
		if err := json.Unmarshal(msg.Value, &u); err != nil {
			zap.L().Warn("skip invalid update", zap.Int64("offset", msg.Offset), zap.Error(err))
			continue
		}
		handle(u)
	}
}

// Close 关闭读取者
func (s *KafkaSubscriber) Close() error {
	return s.reader.Close()
}

// NewPublisher 按 messageMode 组装发布器
// channel 模式返回 broker 本身；kafka 模式返回 broker + Kafka 的 Fanout
func NewPublisher(cfg config.KafkaConfig, broker *ChannelBroker) Publisher {
	if cfg.MessageMode != "kafka" {
		return broker
	}
	zap.L().Info("kafka update fan-out enabled", zap.String("topic", cfg.EventTopic), zap.String("addr", cfg.HostPort))
	return Fanout{broker, NewKafkaPublisher(cfg)}
}
