// Package config 提供应用程序的配置加载和管理功能
// 使用 TOML 格式的配置文件，支持多路径查找，并允许 .env / 环境变量覆盖后端凭据
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml" // TOML 配置文件解析库
	"github.com/joho/godotenv"   // .env 文件加载
)

// MainConfig 主配置，包含应用基本信息和本地控制台 API 的监听地址
type MainConfig struct {
	AppName      string   `toml:"appName"`      // 应用名称，用于日志标识等
	Host         string   `toml:"host"`         // 控制台 API 监听地址，如 "127.0.0.1"
	Port         int      `toml:"port"`         // 控制台 API 监听端口，如 8090
	Mode         string   `toml:"mode"`         // 运行模式："dev" 或 "release"
	AllowOrigins []string `toml:"allowOrigins"` // 允许跨域访问控制台的来源，为空时只接受同源请求
}

// BackendConfig CMS 后端（REST + WebSocket）连接配置
type BackendConfig struct {
	APIURL          string        `toml:"apiURL"`          // REST 基础地址，如 "http://localhost:8080"
	WebsocketURL    string        `toml:"websocketURL"`    // WebSocket 基础地址，如 "ws://localhost:8080"
	Token           string        `toml:"token"`           // 鉴权 cookie "token" 的值
	Timeout         time.Duration `toml:"timeout"`         // REST 请求超时（秒）
	PrivilegedLabel string        `toml:"privilegedLabel"` // 特权角色发送者的显示名
	Scope           string        `toml:"scope"`           // 聊天列表范围："all" | "leak" | "support"
	LeakedID        int64         `toml:"leakedID"`        // scope=leak 时使用的 leaked id
}

// ReconnectConfig 重连与发送策略配置
type ReconnectConfig struct {
	InitialInterval time.Duration `toml:"initialInterval"` // 首次重连等待（毫秒）
	MaxInterval     time.Duration `toml:"maxInterval"`     // 最大重连间隔（秒）
	MaxElapsedTime  time.Duration `toml:"maxElapsedTime"`  // 放弃重连前的总时长（秒），0 表示不放弃
	Multiplier      float64       `toml:"multiplier"`      // 退避倍数
	AckTimeout      time.Duration `toml:"ackTimeout"`      // 发出消息等待回显的超时（秒）
	SendRate        float64       `toml:"sendRate"`        // 每秒允许发送的帧数
	SendBurst       int           `toml:"sendBurst"`       // 突发帧数
}

// RedisConfig Redis 连接配置，Enabled=false 时使用内存缓存
type RedisConfig struct {
	Enabled  bool          `toml:"enabled"`  // 是否启用 Redis
	Host     string        `toml:"host"`     // Redis 服务器地址
	Port     int           `toml:"port"`     // Redis 端口，默认 6379
	Password string        `toml:"password"` // Redis 密码，无密码留空
	Db       int           `toml:"db"`       // Redis 数据库编号，默认 0
	TTL      time.Duration `toml:"ttl"`      // 快照过期时间（小时）
}

// LogConfig 日志配置，使用 lumberjack 进行日志轮转
type LogConfig struct {
	LogPath    string `toml:"logPath"`    // 日志文件存储目录
	FileName   string `toml:"fileName"`   // 日志文件名
	MaxSize    int    `toml:"maxSize"`    // 单个日志文件最大大小（MB）
	MaxBackups int    `toml:"maxBackups"` // 保留旧日志文件的最大个数
	MaxAge     int    `toml:"maxAge"`     // 保留旧日志文件的最大天数
	Level      string `toml:"level"`      // 日志级别：debug, info, warn, error
}

// KafkaConfig 事件分发配置
type KafkaConfig struct {
	MessageMode string        `toml:"messageMode"` // "channel"（仅进程内）或 "kafka"（额外写入 Kafka）
	HostPort    string        `toml:"hostPort"`    // Kafka 服务器地址，如 "localhost:9092"
	EventTopic  string        `toml:"eventTopic"`  // 聊天事件主题
	Timeout     time.Duration `toml:"timeout"`     // 写超时（秒）
}

// JWTConfig 控制台 API 的 JWT 配置，Secret 为空时不启用鉴权
type JWTConfig struct {
	Secret            string `toml:"secret"`            // 签名密钥
	AccessTokenExpiry int    `toml:"accessTokenExpiry"` // Token 有效期（分钟）
}

// Config 应用程序总配置，聚合所有子配置
type Config struct {
	MainConfig      `toml:"mainConfig"`
	BackendConfig   `toml:"backendConfig"`
	ReconnectConfig `toml:"reconnectConfig"`
	RedisConfig     `toml:"redisConfig"`
	LogConfig       `toml:"logConfig"`
	KafkaConfig     `toml:"kafkaConfig"`
	JWTConfig       `toml:"jwtConfig"`
}

// config 全局配置单例，延迟加载
var config *Config

// searchPaths 候选配置文件路径（优先加载本地配置）
var searchPaths = []string{
	"configs/config_local.toml",
	"configs/config.toml",
	"../../configs/config_local.toml",
	"../../configs/config.toml",
}

// LoadConfig 按顺序尝试候选路径，找到第一个可用的配置文件即停止
func LoadConfig() error {
	for _, path := range searchPaths {
		if _, err := toml.DecodeFile(path, config); err == nil {
			return nil
		}
	}
	return fmt.Errorf("could not find configuration file in any of the search paths")
}

// LoadFile 从指定路径加载配置并替换全局单例
func LoadFile(path string) (*Config, error) {
	c := new(Config)
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	c.applyEnv()
	c.applyDefaults()
	config = c
	return c, nil
}

// GetConfig 获取全局配置实例（单例模式）
// 首次调用时会自动加载配置文件，找不到文件时使用默认值
func GetConfig() *Config {
	if config == nil {
		config = new(Config)
		_ = LoadConfig()
		config.applyEnv()
		config.applyDefaults()
	}
	return config
}

// applyEnv 用 .env 和 CMS_CHAT_* 环境变量覆盖后端凭据
// token 不适合写进提交到仓库的 toml 文件
func (c *Config) applyEnv() {
	_ = godotenv.Load()
	if v := os.Getenv("CMS_CHAT_TOKEN"); v != "" {
		c.BackendConfig.Token = v
	}
	if v := os.Getenv("CMS_CHAT_API_URL"); v != "" {
		c.BackendConfig.APIURL = v
	}
	if v := os.Getenv("CMS_CHAT_WS_URL"); v != "" {
		c.BackendConfig.WebsocketURL = v
	}
	if v := os.Getenv("CMS_CHAT_LEAKED_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.BackendConfig.LeakedID = id
		}
	}
}

// applyDefaults 补齐未配置的字段，toml 中的数字时长统一换算成 time.Duration
func (c *Config) applyDefaults() {
	if c.MainConfig.AppName == "" {
		c.MainConfig.AppName = "cms_chat_console"
	}
	if c.MainConfig.Host == "" {
		c.MainConfig.Host = "127.0.0.1"
	}
	if c.MainConfig.Port == 0 {
		c.MainConfig.Port = 8090
	}
	if c.MainConfig.Mode == "" {
		c.MainConfig.Mode = "dev"
	}

	if c.BackendConfig.Timeout <= 0 {
		c.BackendConfig.Timeout = 10
	}
	c.BackendConfig.Timeout = scale(c.BackendConfig.Timeout, time.Second)
	if c.BackendConfig.Scope == "" {
		c.BackendConfig.Scope = "all"
	}

	r := &c.ReconnectConfig
	if r.InitialInterval <= 0 {
		r.InitialInterval = 500
	}
	r.InitialInterval = scale(r.InitialInterval, time.Millisecond)
	if r.MaxInterval <= 0 {
		r.MaxInterval = 30
	}
	r.MaxInterval = scale(r.MaxInterval, time.Second)
	r.MaxElapsedTime = scale(r.MaxElapsedTime, time.Second)
	if r.Multiplier < 1 {
		r.Multiplier = 2
	}
	if r.AckTimeout <= 0 {
		r.AckTimeout = 10
	}
	r.AckTimeout = scale(r.AckTimeout, time.Second)
	if r.SendRate <= 0 {
		r.SendRate = 5
	}
	if r.SendBurst <= 0 {
		r.SendBurst = 10
	}

	if c.RedisConfig.Port == 0 {
		c.RedisConfig.Port = 6379
	}
	if c.RedisConfig.TTL <= 0 {
		c.RedisConfig.TTL = 24
	}
	c.RedisConfig.TTL = scale(c.RedisConfig.TTL, time.Hour)

	if c.KafkaConfig.MessageMode == "" {
		c.KafkaConfig.MessageMode = "channel"
	}
	if c.KafkaConfig.EventTopic == "" {
		c.KafkaConfig.EventTopic = "cms_chat_events"
	}
	if c.KafkaConfig.Timeout <= 0 {
		c.KafkaConfig.Timeout = 5
	}
	c.KafkaConfig.Timeout = scale(c.KafkaConfig.Timeout, time.Second)

	if c.JWTConfig.AccessTokenExpiry <= 0 {
		c.JWTConfig.AccessTokenExpiry = 60
	}
	if c.LogConfig.LogPath == "" {
		c.LogConfig.LogPath = "logs"
	}
}

// scale toml 里写纯数字（如 timeout = 10）时会被解码成纳秒，这里按单位换算
// 写成字符串（如 timeout = "10s"）的值已经带单位，保持不变
func scale(d, unit time.Duration) time.Duration {
	if d > 0 && d < time.Millisecond {
		return d * unit
	}
	return d
}

// Validate 检查与后端通信所必需的字段
func (c *Config) Validate() error {
	if c.BackendConfig.APIURL == "" {
		return fmt.Errorf("backendConfig.apiURL is required")
	}
	if c.BackendConfig.WebsocketURL == "" {
		return fmt.Errorf("backendConfig.websocketURL is required")
	}
	switch c.BackendConfig.Scope {
	case "all", "support":
	case "leak":
		if c.BackendConfig.LeakedID <= 0 {
			return fmt.Errorf("backendConfig.leakedID is required for scope=leak")
		}
	default:
		return fmt.Errorf("unknown backendConfig.scope %q", c.BackendConfig.Scope)
	}
	switch c.KafkaConfig.MessageMode {
	case "channel":
	case "kafka":
		if c.KafkaConfig.HostPort == "" {
			return fmt.Errorf("kafkaConfig.hostPort is required for messageMode=kafka")
		}
	default:
		return fmt.Errorf("unknown kafkaConfig.messageMode %q", c.KafkaConfig.MessageMode)
	}
	return nil
}

// CheckServe 检查控制台 API 的暴露面：监听非本机地址时必须配置 jwtConfig.secret
func (c *Config) CheckServe() error {
	if c.JWTConfig.Secret != "" || isLoopback(c.MainConfig.Host) {
		return nil
	}
	return fmt.Errorf("mainConfig.host %q is not a loopback address, jwtConfig.secret is required", c.MainConfig.Host)
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
