package redis

import (
	"context"
	"strings"
	"sync"
	"time"

	"cms_chat_console/pkg/errorx"
)

type memoryItem struct {
	value    string
	expireAt time.Time // 零值表示不过期
}

// MemoryCache 进程内缓存，redisConfig.enabled=false 时使用
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   func() time.Time
	pool  *workerPool
}

// NewMemoryCache 创建内存缓存实例
func NewMemoryCache(workerNum, taskChanSize int) *MemoryCache {
	return &MemoryCache{
		items: make(map[string]memoryItem),
		now:   time.Now,
		pool:  newWorkerPool(workerNum, taskChanSize),
	}
}

func (m *MemoryCache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	item := memoryItem{value: value}
	if ttl > 0 {
		item.expireAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.items[key] = item
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.lookup(key)
	if !ok {
		return "", nil
	}
	return v, nil
}

func (m *MemoryCache) GetOrError(ctx context.Context, key string) (string, error) {
	v, ok := m.lookup(key)
	if !ok {
		return "", errorx.Newf(errorx.CodeNotFound, "cache key %s not found", key)
	}
	return v, nil
}

func (m *MemoryCache) lookup(key string) (string, bool) {
	m.mu.RLock()
	item, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !item.expireAt.IsZero() && !m.now().Before(item.expireAt) {
		m.mu.Lock()
		delete(m.items, key)
		m.mu.Unlock()
		return "", false
	}
	return item.value, true
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

// DeleteByPattern 只支持 "prefix*" 和精确匹配
func (m *MemoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	prefix, wildcard := strings.CutSuffix(pattern, "*")
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.items {
		if (wildcard && strings.HasPrefix(k, prefix)) || (!wildcard && k == pattern) {
			delete(m.items, k)
		}
	}
	return nil
}

func (m *MemoryCache) SubmitTask(action func()) {
	m.pool.submit(action)
}

func (m *MemoryCache) Close() error {
	m.pool.stop()
	return nil
}

var _ AsyncCacheService = (*MemoryCache)(nil)
