// Package config 负责加载和管理应用程序的配置。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Search   SearchConfig   `mapstructure:"search"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Store    StoreConfig    `mapstructure:"store"`
	Database DatabaseConfig `mapstructure:"database"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// SearchConfig 存储外部联网搜索（Tavily）的配置。
// APIKey 为空时搜索网关直接返回 "未配置"，不会发起任何网络请求。
type SearchConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxResults     int    `mapstructure:"max_results"`
	SearchDepth    string `mapstructure:"search_depth"`
	SnippetLength  int    `mapstructure:"snippet_length"`
}

// Timeout 返回单次搜索请求的截止时长。
func (c SearchConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 8 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ChatConfig 存储聊天去重相关的配置。
type ChatConfig struct {
	// GuardBackend 取值 "memory"（单进程）或 "redis"（多副本共享）。
	GuardBackend           string `mapstructure:"guard_backend"`
	GuardTTLSeconds        int    `mapstructure:"guard_ttl_seconds"`
	RejectDuplicateContent bool   `mapstructure:"reject_duplicate_content"`
}

// GuardTTL 返回 redis 在途键的过期时间。
func (c ChatConfig) GuardTTL() time.Duration {
	if c.GuardTTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.GuardTTLSeconds) * time.Second
}

// StoreConfig 存储内存会话存储的配置。
type StoreConfig struct {
	SeedWelcome bool `mapstructure:"seed_welcome"`
}

// DatabaseConfig 存储所有外部存储连接的配置。
type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// MetricsConfig 存储 Prometheus 指标暴露的配置。
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "")
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.base_url", "https://api.tavily.com/search")
	v.SetDefault("search.timeout_seconds", 8)
	v.SetDefault("search.max_results", 3)
	v.SetDefault("search.search_depth", "basic")
	v.SetDefault("search.snippet_length", 150)
	v.SetDefault("chat.guard_backend", "memory")
	v.SetDefault("chat.guard_ttl_seconds", 30)
	v.SetDefault("chat.reject_duplicate_content", true)
	v.SetDefault("store.seed_welcome", true)
	v.SetDefault("database.redis.addr", "localhost:6379")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "soul-chat-events")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Load 从指定路径读取 YAML 配置并叠加环境变量（前缀 SOUL_）。
// 配置文件不存在时使用默认值，解析失败时返回错误。
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SOUL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// 兼容原有的凭证变量名
	if err := v.BindEnv("search.api_key", "SOUL_SEARCH_API_KEY", "TAVILY_API_KEY"); err != nil {
		return Config{}, fmt.Errorf("绑定环境变量失败: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return cfg, nil
}

// Init 初始化配置加载，结果写入全局 Conf 变量。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}
