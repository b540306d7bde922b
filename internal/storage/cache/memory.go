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

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"agent-platform/pkg/metrics"
)

// MemoryStore 内存缓存存储：TTL 懒淘汰 + 条目数 LRU 上限。
// 同 key 并发 Set 为 last-write-wins。
type MemoryStore struct {
	items      map[string]*cacheItem
	maxEntries int
	mu         sync.RWMutex
}

// cacheItem 缓存项；expiration 为 0 表示永不过期
type cacheItem struct {
	value      []byte
	expiration int64 // UnixNano
	lastAccess int64 // UnixNano，LRU 依据
}

// NewMemoryStore 创建内存缓存；maxEntries<=0 表示不限制条目数
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{
		items:      make(map[string]*cacheItem),
		maxEntries: maxEntries,
	}
}

// Set 设置缓存
func (s *MemoryStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	now := time.Now()
	var exp int64
	if expiration > 0 {
		exp = now.Add(expiration).UnixNano()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[key]; !exists && s.maxEntries > 0 && len(s.items) >= s.maxEntries {
		s.evictLocked(now)
	}
	s.items[key] = &cacheItem{
		value:      data,
		expiration: exp,
		lastAccess: now.UnixNano(),
	}
	return nil
}

// evictLocked 腾出一个槽位：先清过期项，不够再淘汰最久未访问的一项
func (s *MemoryStore) evictLocked(now time.Time) {
	nowNano := now.UnixNano()
	removed := 0
	for k, item := range s.items {
		if item.expiration > 0 && item.expiration < nowNano {
			delete(s.items, k)
			removed++
		}
	}
	if removed > 0 {
		metrics.CacheEvictionTotal.WithLabelValues("expired").Add(float64(removed))
		if len(s.items) < s.maxEntries {
			return
		}
	}
	var oldestKey string
	var oldestAccess int64
	for k, item := range s.items {
		if oldestKey == "" || item.lastAccess < oldestAccess {
			oldestKey = k
			oldestAccess = item.lastAccess
		}
	}
	if oldestKey != "" {
		delete(s.items, oldestKey)
		metrics.CacheEvictionTotal.WithLabelValues("lru").Inc()
	}
}

// Get 获取缓存；过期条目当场删除并按不存在处理
func (s *MemoryStore) Get(ctx context.Context, key string, dest interface{}) error {
	now := time.Now().UnixNano()

	s.mu.Lock()
	item, exists := s.items[key]
	if exists && item.expiration > 0 && item.expiration < now {
		delete(s.items, key)
		metrics.CacheEvictionTotal.WithLabelValues("expired").Inc()
		exists = false
	}
	if exists {
		item.lastAccess = now
	}
	s.mu.Unlock()

	if !exists {
		return fmt.Errorf("cache item with key %s not found", key)
	}
	if err := json.Unmarshal(item.value, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return nil
}

// Delete 删除缓存
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[key]; !exists {
		return fmt.Errorf("cache item with key %s not found", key)
	}
	delete(s.items, key)
	return nil
}

// Exists 检查缓存是否存在（过期视为不存在）
func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[key]
	if !exists {
		return false, nil
	}
	if item.expiration > 0 && item.expiration < time.Now().UnixNano() {
		return false, nil
	}
	return true, nil
}

// Clear 清除所有缓存
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]*cacheItem)
	return nil
}

// SweepExpired 实现 Sweeper：移除所有已过期条目
func (s *MemoryStore) SweepExpired(ctx context.Context) int {
	now := time.Now().UnixNano()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, item := range s.items {
		if item.expiration > 0 && item.expiration < now {
			delete(s.items, k)
			removed++
		}
	}
	if removed > 0 {
		metrics.CacheEvictionTotal.WithLabelValues("expired").Add(float64(removed))
	}
	return removed
}

// Len 当前条目数（含未被懒淘汰的过期项）
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Close 关闭缓存连接
func (s *MemoryStore) Close() error {
	return nil
}
