// Package service 本文件实现 Service 层的依赖注入和聚合
package service

import (
	"cms_chat_console/internal/config"
	"cms_chat_console/internal/dao/backend"
	myredis "cms_chat_console/internal/dao/redis"
	ws "cms_chat_console/internal/gateway/websocket"
	"cms_chat_console/internal/infrastructure/mq"
	"cms_chat_console/internal/service/session"
)

// Services 聚合所有 Service 实例
type Services struct {
	Session ChatSessionService
}

// NewServices 按配置组装依赖并创建 Service
// cache、publisher 可为 nil
func NewServices(cfg *config.Config, cache myredis.AsyncCacheService, publisher mq.Publisher) *Services {
	deps := session.Deps{
		Repo:      backend.NewChatRepository(cfg.BackendConfig.APIURL, cfg.BackendConfig.Token, cfg.BackendConfig.Timeout),
		Links:     ws.NewLinkFactory(cfg.BackendConfig.WebsocketURL, cfg.BackendConfig.Token, BackoffFromConfig(cfg.ReconnectConfig)),
		Cache:     cache,
		Publisher: publisher,
	}
	opts := session.Options{
		PrivilegedLabel: cfg.BackendConfig.PrivilegedLabel,
		AckTimeout:      cfg.ReconnectConfig.AckTimeout,
		SendRate:        cfg.ReconnectConfig.SendRate,
		SendBurst:       cfg.ReconnectConfig.SendBurst,
		MetaTTL:         cfg.RedisConfig.TTL,
		ResyncTimeout:   cfg.BackendConfig.Timeout,
	}
	return &Services{Session: session.NewManager(deps, opts)}
}

// BackoffFromConfig 重连配置转换为连接层的退避参数
func BackoffFromConfig(rc config.ReconnectConfig) ws.BackoffConfig {
	return ws.BackoffConfig{
		InitialInterval: rc.InitialInterval,
		MaxInterval:     rc.MaxInterval,
		MaxElapsedTime:  rc.MaxElapsedTime,
		Multiplier:      rc.Multiplier,
	}
}

// Svc 全局 Services 实例
var Svc *Services

// InitServices 初始化全局 Services 实例
func InitServices(cfg *config.Config, cache myredis.AsyncCacheService, publisher mq.Publisher) {
	Svc = NewServices(cfg, cache, publisher)
}
