package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	"cms_chat_console/pkg/constants"
	"cms_chat_console/pkg/errorx"
)

// ChatMeta 聊天最后一条消息的快照
// 聊天列表接口只返回 last_message 文本，不返回它的时间，快照用来补齐
type ChatMeta struct {
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

func chatMetaKey(chatID int64) string {
	return constants.REDIS_META_PREFIX + strconv.FormatInt(chatID, 10)
}

// SaveChatMetaAsync 异步写入快照，失败只记日志
func SaveChatMetaAsync(cache AsyncCacheService, chatID int64, meta ChatMeta, ttl time.Duration) {
	if cache == nil {
		return
	}
	cache.SubmitTask(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := SaveChatMeta(ctx, cache, chatID, meta, ttl); err != nil {
			zap.L().Error("save chat meta failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	})
}

// SaveChatMeta 同步写入快照
func SaveChatMeta(ctx context.Context, cache CacheService, chatID int64, meta ChatMeta, ttl time.Duration) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return errorx.Wrapf(err, errorx.CodeCacheError, "marshal chat meta %d", chatID)
	}
	return cache.Set(ctx, chatMetaKey(chatID), string(raw), ttl)
}

// LoadChatMeta 读取快照，不存在时返回 nil, nil
func LoadChatMeta(ctx context.Context, cache CacheService, chatID int64) (*ChatMeta, error) {
	raw, err := cache.GetOrError(ctx, chatMetaKey(chatID))
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var meta ChatMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		// 格式不对的旧快照直接丢弃
		_ = cache.Delete(ctx, chatMetaKey(chatID))
		return nil, nil
	}
	return &meta, nil
}

// ClearChatMeta 删除全部快照
func ClearChatMeta(ctx context.Context, cache CacheService) error {
	return cache.DeleteByPattern(ctx, constants.REDIS_META_PREFIX+"*")
}
