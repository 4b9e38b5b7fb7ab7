// Package config 提供 TOML 配置加载、环境变量覆盖与 schema 校验
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 交易核心服务配置
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	// 服务版本
	Version string `mapstructure:"version"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment"`
	// HTTP 服务配置
	HTTP HTTPConfig `mapstructure:"http"`
	// 日志配置
	Logger LoggerConfig `mapstructure:"logger"`
	// Kafka 配置
	Kafka KafkaConfig `mapstructure:"kafka"`
	// 指标配置
	Metrics MetricsConfig `mapstructure:"metrics"`
	// 撮合引擎配置
	Engine EngineConfig `mapstructure:"engine"`
	// 交易对列表
	Pairs []PairConfig `mapstructure:"pairs"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	// 监听地址
	Host string `mapstructure:"host"`
	// 监听端口
	Port int `mapstructure:"port"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	// 日志级别
	Level string `mapstructure:"level"`
	// 输出格式：json 或 text
	Format string `mapstructure:"format"`
	// 输出目标：stdout, file, both
	Output string `mapstructure:"output"`
	// 文件路径
	FilePath string `mapstructure:"file_path"`
	// 最大文件大小（MB）
	MaxSize int `mapstructure:"max_size"`
	// 最大备份文件数
	MaxBackups int `mapstructure:"max_backups"`
	// 最大保留天数
	MaxAge int `mapstructure:"max_age"`
	// 是否压缩
	Compress bool `mapstructure:"compress"`
	// 是否输出调用者信息
	WithCaller bool `mapstructure:"with_caller"`
}

// KafkaConfig Kafka 事件外发配置
type KafkaConfig struct {
	// 是否启用 Kafka 事件发布
	Enabled bool `mapstructure:"enabled"`
	// Broker 地址列表
	Brokers []string `mapstructure:"brokers"`
	// 主题前缀，实际主题为 <prefix>.<事件类别>
	TopicPrefix string `mapstructure:"topic_prefix"`
	// 发送失败最大重试次数
	MaxRetries int `mapstructure:"max_retries"`
	// 重试退避（毫秒）
	RetryBackoff int `mapstructure:"retry_backoff"`
	// 发布缓冲大小
	BufferSize int `mapstructure:"buffer_size"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `mapstructure:"enabled"`
	// Prometheus 监听端口
	Port int `mapstructure:"port"`
	// 指标路径
	Path string `mapstructure:"path"`
}

// EngineConfig 撮合引擎配置
type EngineConfig struct {
	// 每个交易对的任务队列长度
	QueueSize int `mapstructure:"queue_size"`
	// DAY 单与 expires_at 的清扫间隔（秒）
	SweepInterval int `mapstructure:"sweep_interval"`
	// 手续费归集账户
	FeeAccount string `mapstructure:"fee_account"`
	// 事件总线每个订阅者的缓冲大小
	EventBuffer int `mapstructure:"event_buffer"`
	// 雪花 ID 节点编号
	NodeID int64 `mapstructure:"node_id"`
}

// PairConfig 交易对配置，数值字段使用字符串避免浮点精度丢失
type PairConfig struct {
	// 交易对符号，如 BTC-USDT
	Symbol string `mapstructure:"symbol"`
	// 基础货币
	Base string `mapstructure:"base"`
	// 计价货币
	Quote string `mapstructure:"quote"`
	// 最小价格变动单位
	TickSize string `mapstructure:"tick_size"`
	// 最小下单数量
	MinOrderSize string `mapstructure:"min_order_size"`
	// Maker 费率
	MakerFeeRate string `mapstructure:"maker_fee_rate"`
	// Taker 费率
	TakerFeeRate string `mapstructure:"taker_fee_rate"`
}

// Load 从 TOML 文件加载配置，支持 APP_ 前缀环境变量覆盖
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	if len(c.Pairs) == 0 {
		return fmt.Errorf("at least one trading pair is required")
	}
	seen := make(map[string]struct{}, len(c.Pairs))
	for _, p := range c.Pairs {
		if p.Symbol == "" || p.Base == "" || p.Quote == "" {
			return fmt.Errorf("pair symbol/base/quote are required")
		}
		if _, ok := seen[p.Symbol]; ok {
			return fmt.Errorf("duplicate pair symbol: %s", p.Symbol)
		}
		seen[p.Symbol] = struct{}{}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 30)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/app.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", true)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.topic_prefix", "exchange")
	v.SetDefault("kafka.max_retries", 3)
	v.SetDefault("kafka.retry_backoff", 100)
	v.SetDefault("kafka.buffer_size", 4096)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("engine.queue_size", 4096)
	v.SetDefault("engine.sweep_interval", 30)
	v.SetDefault("engine.fee_account", "fee-sink")
	v.SetDefault("engine.event_buffer", 1024)
	v.SetDefault("engine.node_id", 1)
}
