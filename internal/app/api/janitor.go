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
	"time"

	"agent-platform/internal/conversation"
	"agent-platform/internal/storage/cache"
	"agent-platform/pkg/log"
)

// Janitor 进程内清扫：定期清理过期缓存条目与空闲会话。
// Redis/Postgres 后端各自处理过期，只有实现 Sweeper 的后端才会被清扫。
type Janitor struct {
	cacheStore  cache.Store
	sessions    conversation.Store
	interval    time.Duration
	idleTimeout time.Duration
	logger      *log.Logger
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewJanitor 创建清扫器；interval/idleTimeout 非正时取 1m/30m
func NewJanitor(cacheStore cache.Store, sessions conversation.Store, interval, idleTimeout time.Duration, logger *log.Logger) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Janitor{
		cacheStore:  cacheStore,
		sessions:    sessions,
		interval:    interval,
		idleTimeout: idleTimeout,
		logger:      logger.Named("janitor"),
	}
}

// Start 启动后台清扫循环
func (j *Janitor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel
	j.done = make(chan struct{})

	go func() {
		defer close(j.done)
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				j.sweep(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop 停止清扫并等待当前轮结束
func (j *Janitor) Stop() {
	if j.cancel == nil {
		return
	}
	j.cancel()
	<-j.done
}

func (j *Janitor) sweep(ctx context.Context) {
	if sweeper, ok := j.cacheStore.(cache.Sweeper); ok {
		if removed := sweeper.SweepExpired(ctx); removed > 0 {
			j.logger.Debug("清扫过期缓存", "removed", removed)
		}
	}

	if j.sessions == nil {
		return
	}
	cutoff := time.Now().Add(-j.idleTimeout)
	purged := 0
	for _, id := range j.sessions.Sessions() {
		last, ok := j.sessions.LastActivity(id)
		if ok && last.Before(cutoff) {
			j.sessions.PurgeSession(id)
			purged++
		}
	}
	if purged > 0 {
		j.logger.Info("回收空闲会话", "purged", purged, "idle_timeout", j.idleTimeout)
	}
}
