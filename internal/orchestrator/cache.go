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

package orchestrator

import (
	"context"
	"sort"
	"strings"
	"time"

	"agent-platform/internal/storage/cache"
	"agent-platform/pkg/metrics"
)

// responseCache 响应缓存：把 (能力名, 归一化参数) 映射到上次成功的 payload。
// 只缓存成功结果——失败永远走新调用，瞬时故障无需人工失效即可自愈。
type responseCache struct {
	store cache.Store
	ttl   time.Duration
}

func newResponseCache(store cache.Store, ttl time.Duration) *responseCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &responseCache{store: store, ttl: ttl}
}

// Get 查找缓存；命中返回 payload。任何存储错误都按未命中处理。
func (c *responseCache) Get(ctx context.Context, capability string, params map[string]string) (any, bool) {
	if c.store == nil {
		return nil, false
	}
	var payload any
	if err := c.store.Get(ctx, cacheKey(capability, params), &payload); err != nil {
		metrics.CacheMissTotal.WithLabelValues(capability).Inc()
		return nil, false
	}
	metrics.CacheHitTotal.WithLabelValues(capability).Inc()
	return payload, true
}

// Put 写入成功结果；写失败只丢缓存，不影响本次查询
func (c *responseCache) Put(ctx context.Context, capability string, params map[string]string, payload any) {
	if c.store == nil {
		return
	}
	_ = c.store.Set(ctx, cacheKey(capability, params), payload, c.ttl)
}

// cacheKey 构造归一化缓存键：参数按键排序、键值都小写并去首尾空白，
// "London" 与 "london " 命中同一条目。
func cacheKey(capability string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("resp:")
	b.WriteString(strings.ToLower(strings.TrimSpace(capability)))
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(strings.ToLower(strings.TrimSpace(k)))
		b.WriteByte('=')
		b.WriteString(strings.ToLower(strings.TrimSpace(params[k])))
	}
	return b.String()
}
