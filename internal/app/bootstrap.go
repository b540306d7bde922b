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

package app

import (
	"context"
	"fmt"
	"time"

	"agent-platform/internal/adapter"
	"agent-platform/internal/adapter/builtin"
	"agent-platform/internal/conversation"
	"agent-platform/internal/intent"
	"agent-platform/internal/model/llm"
	"agent-platform/internal/orchestrator"
	"agent-platform/internal/storage/cache"
	"agent-platform/internal/synthesis"
	"agent-platform/pkg/config"
	"agent-platform/pkg/log"
	"agent-platform/pkg/secrets"
)

// Bootstrap 统一初始化：cmd/api 与 examples 复用，避免在 cmd 内写装配逻辑
type Bootstrap struct {
	Config       *config.Config
	Logger       *log.Logger
	Secrets      secrets.Store
	Registry     *adapter.Registry
	CacheStore   cache.Store
	Conversation conversation.Store
	LLMClient    llm.Client
	Orchestrator *orchestrator.Orchestrator
	Synthesizer  synthesis.Synthesizer
}

// NewBootstrap 根据配置组装引擎：
// 日志 → secrets → 缓存后端 → 能力注册 → LLM 客户端（限流包装）→ 编排器 → 合成器。
// LLM 未配置时分类降级为空意图、合成走模板，进程仍可启动。
func NewBootstrap(cfg *config.Config) (*Bootstrap, error) {
	logCfg := &log.Config{}
	if cfg != nil {
		logCfg.Level = cfg.Log.Level
		logCfg.Format = cfg.Log.Format
		logCfg.File = cfg.Log.File
	}
	logger, err := log.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("初始化日志failed: %w", err)
	}
	if cfg == nil {
		cfg = &config.Config{}
	}

	secretStore, err := secrets.NewStore(secrets.Config{
		Provider: cfg.Secrets.Provider,
		Vault: secrets.VaultConfig{
			Address:    cfg.Secrets.Vault.Address,
			Token:      cfg.Secrets.Vault.Token,
			PathPrefix: cfg.Secrets.Vault.PathPrefix,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 secret store failed: %w", err)
	}

	cacheStore, err := cache.NewCache(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("初始化响应缓存failed: %w", err)
	}

	registry := adapter.NewRegistry()
	builtin.RegisterBuiltin(registry, cfg.Adapters, secretStore, logger)

	convStore := conversation.NewMemoryStore(cfg.Conversation.MaxTurns)

	llmClient := newLLMClient(cfg, secretStore, logger)

	var gateway intent.Gateway
	if llmClient != nil {
		gateway = intent.NewLLMGateway(llmClient, registry)
	} else {
		gateway = noopGateway{}
	}

	orch := orchestrator.New(registry, gateway, convStore, cacheStore, orchestrator.Options{
		HistoryWindow:   cfg.Classifier.HistoryWindow,
		AdapterTimeout:  cfg.Adapters.AdapterTimeout(""),
		AdapterTimeouts: adapterTimeoutOverrides(cfg.Adapters),
		CacheTTL:        cfg.Cache.CacheTTL(),
	}, logger)

	return &Bootstrap{
		Config:       cfg,
		Logger:       logger,
		Secrets:      secretStore,
		Registry:     registry,
		CacheStore:   cacheStore,
		Conversation: convStore,
		LLMClient:    llmClient,
		Orchestrator: orch,
		Synthesizer:  synthesis.New(cfg.Synthesis.Provider, llmClient, logger),
	}, nil
}

// Shutdown 释放外部连接
func (b *Bootstrap) Shutdown() error {
	if b.CacheStore != nil {
		return b.CacheStore.Close()
	}
	return nil
}

// newLLMClient 创建带限流的 LLM 客户端；没有可用 key 时返回 nil
func newLLMClient(cfg *config.Config, secretStore secrets.Store, logger *log.Logger) llm.Client {
	apiKey := cfg.Model.APIKey
	if apiKey == "" && secretStore != nil {
		// 配置未给 key 时从 secret store 兜底解析
		if v, err := secretStore.Get(context.Background(), "OPENAI_API_KEY"); err == nil {
			apiKey = v
		}
	}
	if apiKey == "" {
		logger.Warn("未配置 LLM api_key：意图分类降级为空意图，合成走模板")
		return nil
	}
	client, err := llm.NewClient(cfg.Model.Provider, cfg.Model.Name, apiKey, cfg.Model.BaseURL)
	if err != nil {
		logger.Warn("创建 LLM 客户端失败，降级运行", "error", err)
		return nil
	}

	rl := cfg.Model.RateLimit
	if rl.RPS <= 0 && rl.MaxConcurrent <= 0 {
		return client
	}
	limitCfg := llm.LLMLimitConfig{
		RequestsPerMinute: rl.RPS * 60,
		Burst:             rl.Burst,
		MaxConcurrent:     rl.MaxConcurrent,
	}
	limiter := llm.NewLLMRateLimiter(map[string]llm.LLMLimitConfig{
		client.Provider(): limitCfg,
	}, &limitCfg)
	return llm.NewRateLimitedClient(client, limiter)
}

// adapterTimeoutOverrides 收集按能力配置的超时覆盖
func adapterTimeoutOverrides(a config.AdaptersConfig) map[string]time.Duration {
	out := make(map[string]time.Duration)
	if a.Weather.Timeout != "" {
		out["weather"] = a.AdapterTimeout(a.Weather.Timeout)
	}
	if a.News.Timeout != "" {
		out["news"] = a.AdapterTimeout(a.News.Timeout)
	}
	return out
}

// noopGateway 无 LLM 时的分类器：永远返回空意图
type noopGateway struct{}

func (noopGateway) Classify(context.Context, string, []intent.TurnContext) (intent.Intent, error) {
	return intent.Intent{}, nil
}
