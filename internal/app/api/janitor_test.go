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

package api

import (
	"context"
	"testing"
	"time"

	"agent-platform/internal/conversation"
	"agent-platform/internal/storage/cache"
)

func TestJanitor_SweepsExpiredCacheAndIdleSessions(t *testing.T) {
	ctx := context.Background()
	cacheStore := cache.NewMemoryStore(0)
	_ = cacheStore.Set(ctx, "short", "v", 5*time.Millisecond)
	_ = cacheStore.Set(ctx, "keep", "v", time.Hour)

	sessions := conversation.NewMemoryStore(0)
	sessions.AppendTurn("idle", conversation.Turn{Query: "old", CreatedAt: time.Now()})
	time.Sleep(20 * time.Millisecond)
	sessions.AppendTurn("active", conversation.Turn{Query: "new", CreatedAt: time.Now()})

	// idleTimeout 取 10ms：idle 会话的最后活动已超过阈值，active 未超过
	j := NewJanitor(cacheStore, sessions, time.Minute, 10*time.Millisecond, nil)
	j.sweep(ctx)

	if cacheStore.Len() != 1 {
		t.Errorf("cache entries after sweep: %d, want 1", cacheStore.Len())
	}
	if len(sessions.RecentTurns("idle", 1)) != 0 {
		t.Error("idle session should be purged")
	}
	if len(sessions.RecentTurns("active", 1)) != 1 {
		t.Error("active session must survive")
	}
}

func TestJanitor_StartStop(t *testing.T) {
	j := NewJanitor(cache.NewMemoryStore(0), conversation.NewMemoryStore(0), 10*time.Millisecond, time.Hour, nil)
	j.Start()
	time.Sleep(30 * time.Millisecond)
	j.Stop() // 不应死锁
}
