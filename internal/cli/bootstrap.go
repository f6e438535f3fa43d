package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"cms_chat_console/internal/config"
	"cms_chat_console/internal/dao/backend"
	myredis "cms_chat_console/internal/dao/redis"
	"cms_chat_console/internal/infrastructure/logger"
	"cms_chat_console/internal/infrastructure/mq"
	"cms_chat_console/internal/service"
	"cms_chat_console/pkg/errorx"
	"cms_chat_console/pkg/util/jwt"
)

// app 一次命令运行所需的全部组件
type app struct {
	cfg       *config.Config
	scope     backend.Scope
	cache     myredis.AsyncCacheService
	broker    *mq.ChannelBroker
	publisher mq.Publisher
	svc       *service.Services
}

// loadConfig 加载配置并应用命令行覆盖
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if configPath != "" {
		c, err := config.LoadFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	} else {
		cfg = config.GetConfig()
	}
	if scopeFlag != "" {
		cfg.BackendConfig.Scope = scopeFlag
	}
	if leakedFlag != 0 {
		cfg.BackendConfig.LeakedID = leakedFlag
	}
	if modeFlag != "" {
		cfg.MainConfig.Mode = modeFlag
	}
	return cfg, nil
}

// initLogger 初始化日志，失败时无法继续
func initLogger(cfg *config.Config) {
	if err := logger.Init(&cfg.LogConfig, cfg.MainConfig.Mode); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
}

// bootstrap 按依赖顺序初始化：配置 → 日志 → token 检查 → 缓存 → 事件分发 → Service
func bootstrap(ctx context.Context) (*app, error) {
	// 1. 加载配置
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	scope, err := backend.ParseScope(cfg.BackendConfig.Scope, cfg.BackendConfig.LeakedID)
	if err != nil {
		return nil, err
	}

	// 2. 初始化日志
	initLogger(cfg)
	zap.L().Info("日志初始化成功", zap.String("mode", cfg.MainConfig.Mode))

	// 3. 初始化 JWT，检查后端 token 是否已过期
	jwt.Init(cfg.JWTConfig.Secret, cfg.JWTConfig.AccessTokenExpiry)
	if err := checkBackendToken(cfg.BackendConfig.Token); err != nil {
		return nil, err
	}

	// 4. 初始化缓存
	if err := myredis.Init(ctx); err != nil {
		return nil, err
	}
	cache := myredis.GetCacheService()

	// 5. 初始化事件分发
	broker := mq.NewChannelBroker()
	publisher := mq.NewPublisher(cfg.KafkaConfig, broker)

	// 6. 初始化 Service 层
	service.InitServices(cfg, cache, publisher)
	zap.L().Info("Service 层初始化成功", zap.String("scope", scope.String()))

	return &app{
		cfg:       cfg,
		scope:     scope,
		cache:     cache,
		broker:    broker,
		publisher: publisher,
		svc:       service.Svc,
	}, nil
}

// checkBackendToken 后端 token 已过期时直接失败；无法解析只告警，交给后端判断
func checkBackendToken(token string) error {
	if token == "" {
		zap.L().Warn("backend token is empty, requests will be unauthenticated")
		return nil
	}
	info, err := jwt.InspectBackendToken(token, time.Now())
	if err != nil {
		if errorx.GetCode(err) == errorx.CodeUnauthorized {
			return fmt.Errorf("backend token rejected: %w", err)
		}
		zap.L().Warn("backend token is not a readable JWT", zap.Error(err))
		return nil
	}
	fields := []zap.Field{zap.Int64("user_id", info.UserID)}
	if !info.ExpiresAt.IsZero() {
		fields = append(fields, zap.Time("expires_at", info.ExpiresAt))
	}
	zap.L().Info("backend token inspected", fields...)
	return nil
}

// Close 按初始化的逆序释放资源
func (a *app) Close() {
	a.svc.Session.Close()
	if err := a.publisher.Close(); err != nil {
		zap.L().Warn("close publisher", zap.Error(err))
	}
	if err := a.cache.Close(); err != nil {
		zap.L().Warn("close cache", zap.Error(err))
	}
	_ = zap.L().Sync()
}
