package config

import (
	"time"

	"tradepost.com/pkg/bootstrap"
)

// Config 对应 config/merchant-service.yaml
type Config struct {
	Name     string                `mapstructure:"name" yaml:"name"`
	Log      LogConfig             `mapstructure:"log" yaml:"log"`
	HTTP     HTTPConfig            `mapstructure:"http" yaml:"http"`
	Mysql    MysqlConfig           `mapstructure:"mysql" yaml:"mysql"`
	Redis    RedisConfig           `mapstructure:"redis" yaml:"redis"`
	Nats     NatsConfig            `mapstructure:"nats" yaml:"nats"`
	Prompt   PromptConfig          `mapstructure:"prompt" yaml:"prompt"`
	Limit    LimitConfig           `mapstructure:"limit" yaml:"limit"`
	Breaker  BreakerConfig         `mapstructure:"breaker" yaml:"breaker"`
	Sentinel bootstrap.SentinelCfg `mapstructure:"sentinel" yaml:"sentinel"`
	Trace    TraceConfig           `mapstructure:"trace" yaml:"trace"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

type HTTPConfig struct {
	Addr      string `mapstructure:"addr" yaml:"addr"`
	AdminAddr string `mapstructure:"adminAddr" yaml:"adminAddr"`
}

type MysqlConfig struct {
	DSN         string `mapstructure:"dsn" yaml:"dsn"`
	MaxIdle     int    `mapstructure:"maxIdle" yaml:"maxIdle"`
	MaxOpen     int    `mapstructure:"maxOpen" yaml:"maxOpen"`
	MaxLifetime int    `mapstructure:"maxLifetime" yaml:"maxLifetime"` // 秒
	LogLevel    string `mapstructure:"logLevel" yaml:"logLevel"`
	AutoMigrate bool   `mapstructure:"autoMigrate" yaml:"autoMigrate"`
}

type RedisConfig struct {
	Addr         string `mapstructure:"addr" yaml:"addr"`
	Password     string `mapstructure:"password" yaml:"password"`
	DB           int    `mapstructure:"db" yaml:"db"`
	PoolSize     int    `mapstructure:"poolSize" yaml:"poolSize"`
	MinIdleConns int    `mapstructure:"minIdleConns" yaml:"minIdleConns"`
}

// NatsConfig URL 为空时用进程内广播，只适合单实例
type NatsConfig struct {
	URL  string `mapstructure:"url" yaml:"url"`
	Name string `mapstructure:"name" yaml:"name"`
}

type PromptConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// LimitConfig 每个玩家的令牌桶
type LimitConfig struct {
	RPS   float64 `mapstructure:"rps" yaml:"rps"`
	Burst int     `mapstructure:"burst" yaml:"burst"`
}

type BreakerConfig struct {
	Timeout             time.Duration `mapstructure:"timeout" yaml:"timeout"`
	ConsecutiveFailures uint32        `mapstructure:"consecutiveFailures" yaml:"consecutiveFailures"`
}

type TraceConfig struct {
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint"` // 为空不启用
	SampleRatio float64 `mapstructure:"sampleRatio" yaml:"sampleRatio"`
}
