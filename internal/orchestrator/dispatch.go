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
	"sync"
	"time"

	"agent-platform/internal/adapter"
	"agent-platform/internal/intent"
	"agent-platform/pkg/metrics"
	"agent-platform/pkg/tracing"
)

// dispatch 并发派发去重后的能力请求并在屏障处聚合。
// 每个能力独立：一个能力的失败或缓慢不影响其余能力的结果。
func (o *Orchestrator) dispatch(ctx context.Context, reqs []intent.CapabilityRequest) map[string]adapter.Result {
	results := make(map[string]adapter.Result, len(reqs))
	if len(reqs) == 0 {
		return results
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, req := range reqs {
		wg.Add(1)
		go func(req intent.CapabilityRequest) {
			defer wg.Done()
			r := o.invokeCapability(ctx, req)
			mu.Lock()
			results[req.Name] = r
			mu.Unlock()
		}(req)
	}
	wg.Wait()
	return results
}

// invokeCapability 单个能力的完整调用路径：
// 缓存命中 → 直接 Ok；未命中 → 解析适配器并调用（超时 + 至多一次重试），
// 成功后写穿缓存。注册表未命中降级为 capability_unavailable。
func (o *Orchestrator) invokeCapability(ctx context.Context, req intent.CapabilityRequest) adapter.Result {
	capability := req.Name

	if payload, ok := o.cache.Get(ctx, capability, req.Parameters); ok {
		metrics.AdapterInvokeTotal.WithLabelValues(capability, "cached").Inc()
		return adapter.Ok(payload)
	}

	a, ok := o.registry.Resolve(capability)
	if !ok {
		metrics.AdapterInvokeTotal.WithLabelValues(capability, "unavailable").Inc()
		return adapter.Fail(adapter.ReasonUnavailable, false)
	}

	result := o.invokeOnce(ctx, a, req.Parameters)
	if !result.OK && result.Retryable && ctx.Err() == nil {
		// 重试策略集中在这里：至多一次，且仅对可重试失败
		metrics.AdapterRetryTotal.WithLabelValues(capability).Inc()
		o.logger.Debug("适配器调用失败，重试一次", "capability", capability, "reason", result.Reason)
		result = o.invokeOnce(ctx, a, req.Parameters)
	}

	if result.OK {
		metrics.AdapterInvokeTotal.WithLabelValues(capability, "ok").Inc()
		o.cache.Put(ctx, capability, req.Parameters, result.Payload)
	} else {
		metrics.AdapterInvokeTotal.WithLabelValues(capability, "failed").Inc()
		o.logger.Warn("适配器调用失败", "capability", capability, "reason", result.Reason, "retryable", result.Retryable)
	}
	return result
}

// invokeOnce 带超时执行一次调用。到点即返回 Failed("timeout", retryable)，
// 不等迟到的结果；适配器应尊重 ctx，迟到的 goroutine 随取消退出。
func (o *Orchestrator) invokeOnce(ctx context.Context, a adapter.Adapter, params map[string]string) adapter.Result {
	invokeCtx, cancel := context.WithTimeout(ctx, o.timeoutFor(a.Name()))
	defer cancel()

	spanCtx, span := tracing.StartAdapterSpan(invokeCtx, a.Name())
	defer span.End()

	start := time.Now()
	done := make(chan adapter.Result, 1)
	go func() {
		done <- a.Invoke(spanCtx, params)
	}()

	var result adapter.Result
	select {
	case result = <-done:
	case <-invokeCtx.Done():
		result = adapter.Fail(adapter.ReasonTimeout, true)
	}
	metrics.AdapterDuration.WithLabelValues(a.Name()).Observe(time.Since(start).Seconds())
	return result
}
