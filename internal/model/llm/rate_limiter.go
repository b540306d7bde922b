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

package llm

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// LLMLimitConfig 单个 provider 的限流配置
type LLMLimitConfig struct {
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"` // 每分钟请求数
	Burst             int     `mapstructure:"burst"`               // 突发请求上限，<=0 时按 2 秒配额推导
	MaxConcurrent     int     `mapstructure:"max_concurrent"`      // 最大并发请求数
}

// LLMRateLimiter provider 维度的请求限流 + 并发控制。
// 意图分类和回答合成共享底层 Client，两类调用在这里汇入同一份配额。
type LLMRateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*providerLimiter
	defaults LLMLimitConfig
}

type providerLimiter struct {
	requests  *rate.Limiter // 为 nil 时不限请求速率
	semaphore chan struct{} // 为 nil 时不限并发
}

// NewLLMRateLimiter 创建限流器；defaults 用于未显式配置的 provider
func NewLLMRateLimiter(configs map[string]LLMLimitConfig, defaults *LLMLimitConfig) *LLMRateLimiter {
	def := LLMLimitConfig{RequestsPerMinute: 300, MaxConcurrent: 8}
	if defaults != nil {
		def = *defaults
	}

	l := &LLMRateLimiter{
		limiters: make(map[string]*providerLimiter),
		defaults: def,
	}
	for provider, cfg := range configs {
		l.limiters[provider] = newProviderLimiter(cfg)
	}
	return l
}

func newProviderLimiter(cfg LLMLimitConfig) *providerLimiter {
	p := &providerLimiter{}
	if cfg.RequestsPerMinute > 0 {
		rps := cfg.RequestsPerMinute / 60.0
		burst := cfg.Burst
		if burst <= 0 {
			// 未配置突发量时放行 2 秒的配额
			burst = int(rps * 2)
		}
		if burst < 1 {
			burst = 1
		}
		p.requests = rate.NewLimiter(rate.Limit(rps), burst)
	}
	if cfg.MaxConcurrent > 0 {
		p.semaphore = make(chan struct{}, cfg.MaxConcurrent)
	}
	return p
}

// get 取 provider 的限流器，首次访问时按默认配置创建
func (l *LLMRateLimiter) get(provider string) *providerLimiter {
	l.mu.RLock()
	p, ok := l.limiters[provider]
	l.mu.RUnlock()
	if ok {
		return p
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok = l.limiters[provider]; ok {
		return p
	}
	p = newProviderLimiter(l.defaults)
	l.limiters[provider] = p
	return p
}

// Wait 阻塞直到拿到请求配额和并发 slot；ctx 取消或超出等待预算时返回错误
func (l *LLMRateLimiter) Wait(ctx context.Context, provider string) error {
	p := l.get(provider)

	if p.requests != nil {
		if err := p.requests.Wait(ctx); err != nil {
			return fmt.Errorf("等待请求配额failed: %w", err)
		}
	}

	if p.semaphore != nil {
		select {
		case p.semaphore <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Release 归还并发 slot，必须与成功的 Wait 配对调用
func (l *LLMRateLimiter) Release(provider string) {
	l.mu.RLock()
	p, ok := l.limiters[provider]
	l.mu.RUnlock()

	if ok && p.semaphore != nil {
		select {
		case <-p.semaphore:
		default:
		}
	}
}
