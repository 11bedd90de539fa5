package config

import (
	"fmt"
	"strings"

	"github.com/dujiao-next/ledger/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server      ServerConfig   `mapstructure:"server"`
	Log         LogConfig      `mapstructure:"log"`
	Database    DatabaseConfig `mapstructure:"database"`
	JWT         JWTConfig      `mapstructure:"jwt"`
	PromoterJWT JWTConfig      `mapstructure:"promoter_jwt"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Queue       QueueConfig    `mapstructure:"queue"`
	CORS        CORSConfig     `mapstructure:"cors"`
	Ledger      LedgerConfig   `mapstructure:"ledger"`
	Security    SecurityConfig `mapstructure:"security"`
	Metrics     MetricsConfig  `mapstructure:"metrics"`
	Internal    InternalConfig `mapstructure:"internal"`
	Payout      PayoutConfig   `mapstructure:"payout"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host            string `mapstructure:"host"`
	Port            string `mapstructure:"port"`
	Mode            string `mapstructure:"mode"` // debug / release
	ReadTimeoutSec  int    `mapstructure:"read_timeout_sec"`
	WriteTimeoutSec int    `mapstructure:"write_timeout_sec"`
	IdleTimeoutSec  int    `mapstructure:"idle_timeout_sec"`
}

// Addr 监听地址
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig JWT 配置（令牌由外部系统签发，本服务只做校验）
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
	Issuer      string `mapstructure:"issuer"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// LedgerConfig 佣金账本配置
type LedgerConfig struct {
	ConfirmDays             int    `mapstructure:"confirm_days"`               // 佣金确认期（天），0 表示立即入账
	MinWithdrawAmount       string `mapstructure:"min_withdraw_amount"`        // 最低提现金额
	CreateRetryLimit        int    `mapstructure:"create_retry_limit"`         // 提现创建乐观锁冲突重试次数
	ConfirmIntervalSeconds  int    `mapstructure:"confirm_interval_seconds"`   // 到期佣金入账轮询间隔
	IdempotencyTTLSeconds   int    `mapstructure:"idempotency_ttl_seconds"`    // 幂等键缓存时间
	ReverseOnOrderCancelled bool   `mapstructure:"reverse_on_order_cancelled"` // 订单取消时冲正佣金
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	WithdrawRateLimit   RateLimitConfig `mapstructure:"withdraw_rate_limit"`
	OrderEventRateLimit RateLimitConfig `mapstructure:"order_event_rate_limit"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// MetricsConfig 监控指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// PayoutConfig 打款渠道配置
type PayoutConfig struct {
	Channel string             `mapstructure:"channel"` // manual / paypal
	PayPal  PayPalPayoutConfig `mapstructure:"paypal"`
}

// PayPalPayoutConfig PayPal Payouts 配置
type PayPalPayoutConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	BaseURL      string `mapstructure:"base_url"`
	Currency     string `mapstructure:"currency"`
	EmailSubject string `mapstructure:"email_subject"`
}

// InternalConfig 内部接口配置
type InternalConfig struct {
	EventSecret string `mapstructure:"event_secret"` // 订单事件回调共享密钥
}

// Load 从 config.yml 加载配置
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")     // 从当前目录查找
	viper.AddConfigPath("./")    // 备用路径
	viper.AddConfigPath("../")   // 如果从 cmd/server 运行
	viper.AddConfigPath("./etc") // etc 文件夹

	// 设置默认值（可选）
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("server.read_timeout_sec", 15)
	viper.SetDefault("server.write_timeout_sec", 30)
	viper.SetDefault("server.idle_timeout_sec", 120)
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "ledger.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "./db/ledger.db")
	viper.SetDefault("database.pool.max_open_conns", 1)
	viper.SetDefault("database.pool.max_idle_conns", 1)
	viper.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expire_hours", 24)
	viper.SetDefault("jwt.issuer", "")
	viper.SetDefault("promoter_jwt.secret", "promoter-change-me-in-production")
	viper.SetDefault("promoter_jwt.expire_hours", 24)
	viper.SetDefault("promoter_jwt.issuer", "")
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "ledger")
	viper.SetDefault("queue.enabled", true)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 10)
	viper.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	viper.SetDefault("cors.allowed_origins", []string{"*"})
	viper.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
		"X-Request-ID",
		"Idempotency-Key",
	})
	viper.SetDefault("cors.allow_credentials", true)
	viper.SetDefault("cors.max_age", 600)
	viper.SetDefault("ledger.confirm_days", 0)
	viper.SetDefault("ledger.min_withdraw_amount", "0.01")
	viper.SetDefault("ledger.create_retry_limit", 3)
	viper.SetDefault("ledger.confirm_interval_seconds", 60)
	viper.SetDefault("ledger.idempotency_ttl_seconds", 86400)
	viper.SetDefault("ledger.reverse_on_order_cancelled", true)
	viper.SetDefault("security.withdraw_rate_limit.window_seconds", 60)
	viper.SetDefault("security.withdraw_rate_limit.max_requests", 10)
	viper.SetDefault("security.order_event_rate_limit.window_seconds", 60)
	viper.SetDefault("security.order_event_rate_limit.max_requests", 30)
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("internal.event_secret", "")
	viper.SetDefault("payout.channel", "manual")
	viper.SetDefault("payout.paypal.base_url", "https://api-m.sandbox.paypal.com")
	viper.SetDefault("payout.paypal.currency", "USD")

	// 环境变量支持
	viper.AutomaticEnv()                                   // 自动读取环境变量
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 将 . 替换为 _ (例如 server.port -> SERVER_PORT)

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}

	return &cfg
}
