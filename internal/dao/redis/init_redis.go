// Package redis 本文件包含缓存服务的初始化逻辑
// 使用 github.com/redis/go-redis/v9 作为底层客户端
package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"cms_chat_console/internal/config"
	"cms_chat_console/pkg/errorx"
)

const (
	workerNum  = 4   // 快照写入量很小，少量 worker 足够
	bufferSize = 256 // 任务通道缓冲区
)

// cacheService 全局缓存服务实例
var cacheService AsyncCacheService

// Init 初始化缓存服务
// redisConfig.enabled=true 时连接 Redis 并 PING 一次，否则使用内存缓存
func Init(ctx context.Context) error {
	conf := config.GetConfig()
	if !conf.RedisConfig.Enabled {
		cacheService = NewMemoryCache(1, bufferSize)
		zap.L().Info("Redis disabled, using memory cache")
		return nil
	}

	addr := conf.RedisConfig.Host + ":" + strconv.Itoa(conf.RedisConfig.Port)
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     conf.RedisConfig.Password,
		DB:           conf.RedisConfig.Db,
		PoolSize:     10,
		MinIdleConns: workerNum,
		DialTimeout:  3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return errorx.Wrapf(err, errorx.CodeCacheError, "redis ping %s", addr)
	}

	cacheService = NewRedisCache(client, workerNum, bufferSize)
	zap.L().Info("Redis connected", zap.String("addr", addr), zap.Int("db", conf.RedisConfig.Db))
	return nil
}

// GetCacheService 获取缓存服务实例，未初始化时返回 nil
func GetCacheService() AsyncCacheService {
	return cacheService
}

// SetCacheService 注入缓存服务（测试或自定义实现）
func SetCacheService(c AsyncCacheService) {
	cacheService = c
}
