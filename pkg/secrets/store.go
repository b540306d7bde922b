// Copyright 2026 fanjia1024
// Secret resolution abstraction

package secrets

import (
	"context"
)

// Store 只读 secret 解析接口。引擎只在引导期解析适配器与模型的 API Key，
// 不承担 secret 的写入与轮换（由外部系统负责）。
type Store interface {
	// Get 获取 secret 值；不存在时返回错误
	Get(ctx context.Context, key string) (string, error)
}

// Config Secret Store 配置
type Config struct {
	Provider string      `yaml:"provider"` // vault | env | memory
	Vault    VaultConfig `yaml:"vault"`
}

// NewStore 创建 Secret Store；未知 provider 退化为 env
func NewStore(config Config) (Store, error) {
	switch config.Provider {
	case "memory":
		return NewMemoryStore(), nil
	case "vault":
		return NewVaultStore(config.Vault)
	case "env", "":
		return NewEnvStore(), nil
	default:
		return NewEnvStore(), nil
	}
}
