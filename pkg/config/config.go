// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置结构体
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	Model        ModelConfig        `mapstructure:"model"`
	Classifier   ClassifierConfig   `mapstructure:"classifier"`
	Synthesis    SynthesisConfig    `mapstructure:"synthesis"`
	Adapters     AdaptersConfig     `mapstructure:"adapters"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Janitor      JanitorConfig      `mapstructure:"janitor"`
	Secrets      SecretsConfig      `mapstructure:"secrets"`
	Monitoring   MonitoringConfig   `mapstructure:"monitoring"`
}

// ServerConfig API 服务配置
type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Timeout string `mapstructure:"timeout"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// ModelConfig LLM 模型配置（分类与合成共用一个模型，与单进程引擎的使用方式一致）
type ModelConfig struct {
	Provider    string          `mapstructure:"provider"` // openai | qwen | claude | eino
	Name        string          `mapstructure:"name"`
	APIKey      string          `mapstructure:"api_key"` // 支持 ${ENV_VAR} 占位
	BaseURL     string          `mapstructure:"base_url"`
	Temperature float64         `mapstructure:"temperature"`
	MaxTokens   int             `mapstructure:"max_tokens"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig LLM Provider 限流配置
type RateLimitConfig struct {
	RPS           float64 `mapstructure:"rps"`
	Burst         int     `mapstructure:"burst"`
	MaxConcurrent int     `mapstructure:"max_concurrent"`
}

// ClassifierConfig 意图分类配置
type ClassifierConfig struct {
	// HistoryWindow 传给分类器的最近轮数 N，<=0 时默认 5
	HistoryWindow int `mapstructure:"history_window"`
}

// SynthesisConfig 回答合成配置
type SynthesisConfig struct {
	Provider string `mapstructure:"provider"` // llm | template
}

// AdaptersConfig 能力适配器配置
type AdaptersConfig struct {
	// Timeout 单次适配器调用超时，如 "3s"，空则默认 3s
	Timeout string               `mapstructure:"timeout"`
	Weather WeatherAdapterConfig `mapstructure:"weather"`
	News    NewsAdapterConfig    `mapstructure:"news"`
}

// WeatherAdapterConfig 天气能力配置（Open-Meteo，无需 API Key）
type WeatherAdapterConfig struct {
	Enabled     *bool  `mapstructure:"enabled"`      // 未配置时默认启用
	GeocodeURL  string `mapstructure:"geocode_url"`  // 空则使用官方地理编码端点
	ForecastURL string `mapstructure:"forecast_url"` // 空则使用官方预报端点
	Timeout     string `mapstructure:"timeout"`      // 覆盖全局适配器超时，可选
}

// NewsAdapterConfig 新闻能力配置（TheNewsAPI）
type NewsAdapterConfig struct {
	Enabled  *bool  `mapstructure:"enabled"`   // 未配置时默认启用；无 token 时不注册
	APIToken string `mapstructure:"api_token"` // 支持 ${ENV_VAR} 占位；空则从 secrets 取 THENEWSAPI_KEY
	BaseURL  string `mapstructure:"base_url"`
	Limit    int    `mapstructure:"limit"` // 单次返回文章数，<=0 时默认 5
	Timeout  string `mapstructure:"timeout"`
}

// CacheConfig 响应缓存配置
type CacheConfig struct {
	Type       string              `mapstructure:"type"` // memory | redis | postgres
	TTL        string              `mapstructure:"ttl"`  // 如 "5m"，空则默认 5m
	MaxEntries int                 `mapstructure:"max_entries"`
	Redis      RedisCacheConfig    `mapstructure:"redis"`
	Postgres   PostgresCacheConfig `mapstructure:"postgres"`
}

// RedisCacheConfig Redis 缓存后端配置
type RedisCacheConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PostgresCacheConfig Postgres 缓存后端配置
type PostgresCacheConfig struct {
	DSN string `mapstructure:"dsn"`
}

// ConversationConfig 会话状态配置
type ConversationConfig struct {
	// MaxTurns 每个会话保留的最大轮数，<=0 时默认 50
	MaxTurns int `mapstructure:"max_turns"`
	// IdleTimeout 空闲会话回收阈值，如 "30m"，空则默认 30m
	IdleTimeout string `mapstructure:"idle_timeout"`
}

// JanitorConfig 进程内清扫配置（过期缓存 + 空闲会话）
type JanitorConfig struct {
	Enabled  *bool  `mapstructure:"enabled"`  // 未配置时默认启用
	Interval string `mapstructure:"interval"` // 如 "1m"，空则默认 1m
}

// SecretsConfig Secret 解析配置
type SecretsConfig struct {
	Provider string            `mapstructure:"provider"` // env | memory | vault
	Vault    VaultSecretConfig `mapstructure:"vault"`
}

// VaultSecretConfig Vault 后端配置
type VaultSecretConfig struct {
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"` // 支持 ${ENV_VAR} 占位
	PathPrefix string `mapstructure:"path_prefix"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	Enabled *bool `mapstructure:"enabled"` // 未配置时默认启用
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	// 替换环境变量
	if err := replaceEnvVars(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadAPIConfig 加载 API 配置（configs/api.yaml）
func LoadAPIConfig() (*Config, error) {
	return LoadConfig("configs/api.yaml")
}

// replaceEnvVars 替换配置中形如 ${ENV_VAR} 的占位
func replaceEnvVars(config *Config) error {
	config.Model.APIKey = expandEnv(config.Model.APIKey)
	config.Adapters.News.APIToken = expandEnv(config.Adapters.News.APIToken)
	config.Cache.Redis.Password = expandEnv(config.Cache.Redis.Password)
	config.Cache.Postgres.DSN = expandEnv(config.Cache.Postgres.DSN)
	config.Secrets.Vault.Token = expandEnv(config.Secrets.Vault.Token)
	return nil
}

// expandEnv 若值为 ${NAME} 且环境变量存在则替换，否则原样返回
func expandEnv(value string) string {
	if !strings.HasPrefix(value, "$") {
		return value
	}
	envVar := strings.TrimPrefix(strings.TrimSuffix(value, "}"), "${")
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return value
}

// AdapterTimeout 解析单次适配器调用超时；override 优先于全局，均无效时取 3s
func (a AdaptersConfig) AdapterTimeout(override string) time.Duration {
	const fallback = 3 * time.Second
	if override != "" {
		if d, err := time.ParseDuration(override); err == nil && d > 0 {
			return d
		}
	}
	if a.Timeout != "" {
		if d, err := time.ParseDuration(a.Timeout); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

// CacheTTL 解析缓存 TTL，非法或空时默认 5m
func (c CacheConfig) CacheTTL() time.Duration {
	const fallback = 5 * time.Minute
	if c.TTL == "" {
		return fallback
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// IdleTimeoutDuration 解析空闲会话回收阈值，非法或空时默认 30m
func (c ConversationConfig) IdleTimeoutDuration() time.Duration {
	const fallback = 30 * time.Minute
	if c.IdleTimeout == "" {
		return fallback
	}
	d, err := time.ParseDuration(c.IdleTimeout)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
