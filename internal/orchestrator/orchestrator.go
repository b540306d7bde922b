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

// Package orchestrator 把一次自然语言查询推过完整生命周期：
// 意图分类 → 并发能力派发（带响应缓存与重试）→ 聚合 → 会话落盘。
package orchestrator

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"agent-platform/internal/adapter"
	"agent-platform/internal/conversation"
	"agent-platform/internal/intent"
	"agent-platform/internal/storage/cache"
	"agent-platform/pkg/errors"
	"agent-platform/pkg/log"
	"agent-platform/pkg/metrics"
	"agent-platform/pkg/tracing"
)

const (
	defaultHistoryWindow  = 5
	defaultAdapterTimeout = 3 * time.Second
)

// Options 编排器可调参数，零值走默认
type Options struct {
	HistoryWindow  int           // 分类时带入的最近轮数
	AdapterTimeout time.Duration // 单次适配器调用上限
	// AdapterTimeouts 按能力名覆盖全局超时，未覆盖的能力用 AdapterTimeout
	AdapterTimeouts map[string]time.Duration
	CacheTTL        time.Duration // 响应缓存存活时间
}

// Orchestrator 查询编排器。所有方法并发安全。
type Orchestrator struct {
	registry        *adapter.Registry
	gateway         intent.Gateway
	store           conversation.Store
	cache           *responseCache
	historyWindow   int
	adapterTimeout  time.Duration
	adapterTimeouts map[string]time.Duration
	logger          *log.Logger
}

// New 创建编排器。cacheStore 传 nil 则禁用响应缓存。
func New(registry *adapter.Registry, gateway intent.Gateway, store conversation.Store, cacheStore cache.Store, opts Options, logger *log.Logger) *Orchestrator {
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = defaultHistoryWindow
	}
	if opts.AdapterTimeout <= 0 {
		opts.AdapterTimeout = defaultAdapterTimeout
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		registry:        registry,
		gateway:         gateway,
		store:           store,
		cache:           newResponseCache(cacheStore, opts.CacheTTL),
		historyWindow:   opts.HistoryWindow,
		adapterTimeout:  opts.AdapterTimeout,
		adapterTimeouts: opts.AdapterTimeouts,
		logger:          logger.Named("orchestrator"),
	}
}

// timeoutFor 返回指定能力的调用超时：按能力覆盖优先，否则全局值
func (o *Orchestrator) timeoutFor(capability string) time.Duration {
	if d, ok := o.adapterTimeouts[capability]; ok && d > 0 {
		return d
	}
	return o.adapterTimeout
}

// HandleQuery 处理一次查询并保证到达终态。
// 唯一的错误路径是空白查询文本；其余一切故障（分类失败、适配器失败、
// 全部能力失败）都折叠进 Result 的状态与结果映射，不作为 error 返回。
func (o *Orchestrator) HandleQuery(ctx context.Context, sessionID, text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.Wrap(errors.ErrBadQuery, "查询文本为空")
	}

	q := NewQuery(sessionID, text)
	ctx, span := tracing.StartQuerySpan(ctx, q.ID, q.SessionID)
	defer span.End()
	start := time.Now()

	in := o.classify(ctx, q)
	results := o.dispatch(ctx, in.Deduped())
	state := deriveTerminal(results)

	o.recordTurn(q, in, state, results)

	metrics.QueryDuration.WithLabelValues(string(state)).Observe(time.Since(start).Seconds())
	metrics.QueryTotal.WithLabelValues(string(state)).Inc()
	o.logger.Info("查询完成",
		"query_id", q.ID,
		"session_id", q.SessionID,
		"state", string(state),
		"capabilities", len(results),
		"elapsed", time.Since(start))

	return &Result{Query: q, State: state, Intent: in, Results: results}, nil
}

// classify 带最近会话上下文做意图分类。
// 分类器传输层错误降级为空意图：查询照常走完生命周期而不是报错。
func (o *Orchestrator) classify(ctx context.Context, q Query) intent.Intent {
	ctx, span := tracing.StartClassifySpan(ctx, q.ID)
	defer span.End()

	in, err := o.gateway.Classify(ctx, q.Text, o.history(q.SessionID))
	if err != nil {
		o.logger.Warn("意图分类失败，按空意图继续", "query_id", q.ID, "error", err)
		return intent.Intent{}
	}
	return in
}

// history 取该会话最近 N 轮，转成分类器需要的上下文（时间正序）
func (o *Orchestrator) history(sessionID string) []intent.TurnContext {
	if o.store == nil {
		return nil
	}
	turns := o.store.RecentTurns(sessionID, o.historyWindow)
	// RecentTurns 最近在前，分类提示需要时间正序
	history := make([]intent.TurnContext, 0, len(turns))
	for i := len(turns) - 1; i >= 0; i-- {
		history = append(history, intent.TurnContext{
			Query: turns[i].Query,
			Reply: renderResults(turns[i].Results),
		})
	}
	return history
}

// recordTurn 把完成的一轮写入会话存储
func (o *Orchestrator) recordTurn(q Query, in intent.Intent, state State, results map[string]adapter.Result) {
	if o.store == nil {
		return
	}
	o.store.AppendTurn(q.SessionID, conversation.Turn{
		QueryID:   q.ID,
		Query:     q.Text,
		Intent:    in,
		State:     string(state),
		Results:   results,
		CreatedAt: time.Now(),
	})
}

// RecentTurns 读取会话最近 count 轮，最近在前
func (o *Orchestrator) RecentTurns(sessionID string, count int) []conversation.Turn {
	if o.store == nil {
		return nil
	}
	return o.store.RecentTurns(sessionID, count)
}

// PurgeSession 清除整个会话历史
func (o *Orchestrator) PurgeSession(sessionID string) {
	if o.store == nil {
		return
	}
	o.store.PurgeSession(sessionID)
}

// Capabilities 当前已注册能力的描述符
func (o *Orchestrator) Capabilities() []adapter.Descriptor {
	return o.registry.Capabilities()
}

// renderResults 把结果映射压成分类历史里 assistant 侧的紧凑 JSON
func renderResults(results map[string]adapter.Result) string {
	if len(results) == 0 {
		return "{}"
	}
	b, err := json.Marshal(results)
	if err != nil {
		return "{}"
	}
	return string(b)
}
