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
	"testing"
	"time"
)

type echoClient struct {
	calls int
}

func (c *echoClient) Chat(messages []Message, options GenerateOptions) (string, error) {
	return c.ChatWithContext(context.Background(), messages, options)
}

func (c *echoClient) ChatWithContext(_ context.Context, messages []Message, _ GenerateOptions) (string, error) {
	c.calls++
	if len(messages) == 0 {
		return "", nil
	}
	return messages[len(messages)-1].Content, nil
}

func (c *echoClient) Model() string    { return "echo" }
func (c *echoClient) Provider() string { return "test" }

func TestRateLimitedClient_NilLimiterPassthrough(t *testing.T) {
	inner := &echoClient{}
	c := NewRateLimitedClient(inner, nil)
	reply, err := c.Chat([]Message{{Role: "user", Content: "hi"}}, GenerateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if reply != "hi" || inner.calls != 1 {
		t.Errorf("reply=%q calls=%d", reply, inner.calls)
	}
}

func TestRateLimitedClient_WaitsAndReleases(t *testing.T) {
	limiter := NewLLMRateLimiter(map[string]LLMLimitConfig{
		"test": {RequestsPerMinute: 6000, MaxConcurrent: 1},
	}, nil)
	inner := &echoClient{}
	c := NewRateLimitedClient(inner, limiter)

	// MaxConcurrent=1：串行两次都应成功，说明 Release 正常归还 slot
	for i := 0; i < 2; i++ {
		if _, err := c.Chat([]Message{{Role: "user", Content: "ping"}}, GenerateOptions{MaxTokens: 16}); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if inner.calls != 2 {
		t.Errorf("calls = %d", inner.calls)
	}
}

func TestRateLimitedClient_ContextCanceled(t *testing.T) {
	// 限流额度极小，取消的 ctx 应直接失败而不是阻塞
	limiter := NewLLMRateLimiter(map[string]LLMLimitConfig{
		"test": {RequestsPerMinute: 0.001, MaxConcurrent: 1},
	}, nil)
	inner := &echoClient{}
	c := NewRateLimitedClient(inner, limiter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.ChatWithContext(ctx, []Message{{Role: "user", Content: "ping"}}, GenerateOptions{MaxTokens: 1000}); err == nil {
		t.Error("canceled context should fail the wait")
	}
}

func TestLLMRateLimiter_BurstHonored(t *testing.T) {
	// 1 rps 配额下突发量 3：前三次立即放行，第四次在短 deadline 内拿不到配额
	limiter := NewLLMRateLimiter(map[string]LLMLimitConfig{
		"test": {RequestsPerMinute: 60, Burst: 3},
	}, nil)

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		err := limiter.Wait(ctx, "test")
		cancel()
		if err != nil {
			t.Fatalf("burst call %d: %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, "test"); err == nil {
		t.Error("fourth call should exceed the burst budget")
	}
}

func TestLLMRateLimiter_UnknownProviderUsesDefaults(t *testing.T) {
	limiter := NewLLMRateLimiter(nil, &LLMLimitConfig{RequestsPerMinute: 6000, MaxConcurrent: 1})

	ctx := context.Background()
	if err := limiter.Wait(ctx, "unseen"); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	limiter.Release("unseen")
	if err := limiter.Wait(ctx, "unseen"); err != nil {
		t.Fatalf("second wait after release: %v", err)
	}
	limiter.Release("unseen")
}
