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
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"agent-platform/internal/adapter"
	"agent-platform/internal/conversation"
	"agent-platform/internal/intent"
	"agent-platform/internal/storage/cache"
	pkgerrors "agent-platform/pkg/errors"
)

type fakeGateway struct {
	intent  intent.Intent
	err     error
	history []intent.TurnContext
}

func (g *fakeGateway) Classify(_ context.Context, _ string, history []intent.TurnContext) (intent.Intent, error) {
	g.history = history
	return g.intent, g.err
}

type countingAdapter struct {
	name    string
	invokes int64
	fn      func(ctx context.Context, params map[string]string) adapter.Result
}

func (a *countingAdapter) Name() string                   { return a.name }
func (a *countingAdapter) Description() string            { return a.name }
func (a *countingAdapter) Parameters() []adapter.ParamSpec { return nil }

func (a *countingAdapter) Invoke(ctx context.Context, params map[string]string) adapter.Result {
	atomic.AddInt64(&a.invokes, 1)
	if a.fn != nil {
		return a.fn(ctx, params)
	}
	return adapter.Ok(map[string]any{"from": a.name})
}

func (a *countingAdapter) count() int64 { return atomic.LoadInt64(&a.invokes) }

func wantIntent(caps ...intent.CapabilityRequest) intent.Intent {
	return intent.Intent{Capabilities: caps}
}

func newTestOrchestrator(gw intent.Gateway, adapters []adapter.Adapter, opts Options) (*Orchestrator, *conversation.MemoryStore) {
	reg := adapter.NewRegistry()
	for _, a := range adapters {
		reg.Register(a)
	}
	store := conversation.NewMemoryStore(0)
	o := New(reg, gw, store, cache.NewMemoryStore(0), opts, nil)
	return o, store
}

func TestHandleQuery_BlankText(t *testing.T) {
	gw := &fakeGateway{}
	o, store := newTestOrchestrator(gw, nil, Options{})

	_, err := o.HandleQuery(context.Background(), "s1", "   ")
	if !errors.Is(err, pkgerrors.ErrBadQuery) {
		t.Fatalf("err = %v, want ErrBadQuery", err)
	}
	if turns := store.RecentTurns("s1", 10); len(turns) != 0 {
		t.Errorf("blank query must not record a turn, got %d", len(turns))
	}
}

func TestHandleQuery_EmptyIntent_Completed(t *testing.T) {
	gw := &fakeGateway{intent: intent.Intent{}}
	o, store := newTestOrchestrator(gw, nil, Options{})

	res, err := o.HandleQuery(context.Background(), "s1", "hello there")
	if err != nil {
		t.Fatalf("HandleQuery: %v", err)
	}
	if res.State != StateCompleted {
		t.Errorf("state = %s, want completed", res.State)
	}
	if len(res.Results) != 0 {
		t.Errorf("results = %v, want empty", res.Results)
	}
	if turns := store.RecentTurns("s1", 10); len(turns) != 1 {
		t.Errorf("empty-intent query should still record a turn, got %d", len(turns))
	}
}

func TestHandleQuery_ClassifierError_DegradesToEmptyIntent(t *testing.T) {
	gw := &fakeGateway{err: errors.New("llm unreachable")}
	o, _ := newTestOrchestrator(gw, nil, Options{})

	res, err := o.HandleQuery(context.Background(), "s1", "what's the weather")
	if err != nil {
		t.Fatalf("classifier error must not surface: %v", err)
	}
	if res.State != StateCompleted {
		t.Errorf("state = %s, want completed", res.State)
	}
	if !res.Intent.Empty() {
		t.Errorf("intent should be empty, got %+v", res.Intent)
	}
}

func TestHandleQuery_PartialFailure(t *testing.T) {
	good := &countingAdapter{name: "weather"}
	bad := &countingAdapter{name: "news", fn: func(context.Context, map[string]string) adapter.Result {
		return adapter.Fail("upstream 500", false)
	}}
	gw := &fakeGateway{intent: wantIntent(
		intent.CapabilityRequest{Name: "weather", Parameters: map[string]string{"location": "Tokyo"}},
		intent.CapabilityRequest{Name: "news", Parameters: map[string]string{"topic": "tech"}},
	)}
	o, _ := newTestOrchestrator(gw, []adapter.Adapter{good, bad}, Options{})

	res, err := o.HandleQuery(context.Background(), "s1", "weather and news")
	if err != nil {
		t.Fatalf("HandleQuery: %v", err)
	}
	if res.State != StateCompletedPartial {
		t.Errorf("state = %s, want completed_partial", res.State)
	}
	if r := res.Results["weather"]; !r.OK {
		t.Errorf("weather should succeed despite news failure: %+v", r)
	}
	if r := res.Results["news"]; r.OK || r.Reason != "upstream 500" {
		t.Errorf("news result = %+v", r)
	}
}

func TestHandleQuery_AllFailed_StillCompletedPartial(t *testing.T) {
	bad := &countingAdapter{name: "news", fn: func(context.Context, map[string]string) adapter.Result {
		return adapter.Fail("boom", false)
	}}
	gw := &fakeGateway{intent: wantIntent(intent.CapabilityRequest{Name: "news"})}
	o, _ := newTestOrchestrator(gw, []adapter.Adapter{bad}, Options{})

	res, err := o.HandleQuery(context.Background(), "s1", "news please")
	if err != nil {
		t.Fatalf("HandleQuery: %v", err)
	}
	if res.State != StateCompletedPartial {
		t.Errorf("state = %s, want completed_partial", res.State)
	}
}

func TestHandleQuery_UnregisteredCapability(t *testing.T) {
	good := &countingAdapter{name: "weather"}
	gw := &fakeGateway{intent: wantIntent(
		intent.CapabilityRequest{Name: "weather", Parameters: map[string]string{"location": "Oslo"}},
		intent.CapabilityRequest{Name: "stocks", Parameters: map[string]string{"symbol": "ACME"}},
	)}
	o, _ := newTestOrchestrator(gw, []adapter.Adapter{good}, Options{})

	res, err := o.HandleQuery(context.Background(), "s1", "weather and stocks")
	if err != nil {
		t.Fatalf("HandleQuery: %v", err)
	}
	if res.State != StateCompletedPartial {
		t.Errorf("state = %s, want completed_partial", res.State)
	}
	r := res.Results["stocks"]
	if r.OK || r.Reason != adapter.ReasonUnavailable || r.Retryable {
		t.Errorf("stocks result = %+v, want non-retryable %s", r, adapter.ReasonUnavailable)
	}
	if !res.Results["weather"].OK {
		t.Errorf("weather should be unaffected: %+v", res.Results["weather"])
	}
}

func TestHandleQuery_CacheIdempotence(t *testing.T) {
	a := &countingAdapter{name: "weather"}
	gw := &fakeGateway{intent: wantIntent(
		intent.CapabilityRequest{Name: "weather", Parameters: map[string]string{"location": "Tokyo"}},
	)}
	o, _ := newTestOrchestrator(gw, []adapter.Adapter{a}, Options{})

	for i := 0; i < 3; i++ {
		res, err := o.HandleQuery(context.Background(), "s1", "weather in tokyo")
		if err != nil {
			t.Fatalf("HandleQuery #%d: %v", i, err)
		}
		if res.State != StateCompleted {
			t.Fatalf("state #%d = %s", i, res.State)
		}
		if !res.Results["weather"].OK {
			t.Fatalf("result #%d = %+v", i, res.Results["weather"])
		}
	}
	if n := a.count(); n != 1 {
		t.Errorf("adapter invoked %d times, want 1 (cache should serve repeats)", n)
	}
}

func TestHandleQuery_CacheKeyNormalization(t *testing.T) {
	a := &countingAdapter{name: "weather"}
	o, _ := newTestOrchestrator(&fakeGateway{}, []adapter.Adapter{a}, Options{})

	gw := o.gateway.(*fakeGateway)
	gw.intent = wantIntent(intent.CapabilityRequest{Name: "weather", Parameters: map[string]string{"location": "Tokyo"}})
	if _, err := o.HandleQuery(context.Background(), "s1", "weather in Tokyo"); err != nil {
		t.Fatal(err)
	}

	// 同能力、参数仅大小写与空白不同，必须命中同一缓存条目
	gw.intent = wantIntent(intent.CapabilityRequest{Name: "Weather", Parameters: map[string]string{"location": " tokyo "}})
	if _, err := o.HandleQuery(context.Background(), "s1", "weather in tokyo again"); err != nil {
		t.Fatal(err)
	}
	if n := a.count(); n != 1 {
		t.Errorf("adapter invoked %d times, want 1", n)
	}
}

func TestHandleQuery_CacheExpiry(t *testing.T) {
	a := &countingAdapter{name: "weather"}
	gw := &fakeGateway{intent: wantIntent(
		intent.CapabilityRequest{Name: "weather", Parameters: map[string]string{"location": "Tokyo"}},
	)}
	o, _ := newTestOrchestrator(gw, []adapter.Adapter{a}, Options{CacheTTL: 20 * time.Millisecond})

	if _, err := o.HandleQuery(context.Background(), "s1", "weather"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, err := o.HandleQuery(context.Background(), "s1", "weather"); err != nil {
		t.Fatal(err)
	}
	if n := a.count(); n != 2 {
		t.Errorf("adapter invoked %d times, want 2 (entry expired)", n)
	}
}

func TestHandleQuery_FailureNotCached(t *testing.T) {
	var calls int64
	a := &countingAdapter{name: "news", fn: func(context.Context, map[string]string) adapter.Result {
		if atomic.AddInt64(&calls, 1) == 1 {
			return adapter.Fail("upstream 500", false)
		}
		return adapter.Ok("fine now")
	}}
	gw := &fakeGateway{intent: wantIntent(intent.CapabilityRequest{Name: "news"})}
	o, _ := newTestOrchestrator(gw, []adapter.Adapter{a}, Options{})

	res1, _ := o.HandleQuery(context.Background(), "s1", "news")
	if res1.State != StateCompletedPartial {
		t.Fatalf("first state = %s", res1.State)
	}
	res2, _ := o.HandleQuery(context.Background(), "s1", "news")
	if res2.State != StateCompleted {
		t.Errorf("second state = %s, want completed (failure must not be cached)", res2.State)
	}
	if !res2.Results["news"].OK {
		t.Errorf("second result = %+v", res2.Results["news"])
	}
}

func TestHandleQuery_RetryableFailure_RetriedOnce(t *testing.T) {
	a := &countingAdapter{name: "news", fn: func(context.Context, map[string]string) adapter.Result {
		return adapter.Fail("flaky", true)
	}}
	gw := &fakeGateway{intent: wantIntent(intent.CapabilityRequest{Name: "news"})}
	o, _ := newTestOrchestrator(gw, []adapter.Adapter{a}, Options{})

	res, err := o.HandleQuery(context.Background(), "s1", "news")
	if err != nil {
		t.Fatal(err)
	}
	if res.State != StateCompletedPartial {
		t.Errorf("state = %s", res.State)
	}
	if n := a.count(); n != 2 {
		t.Errorf("adapter invoked %d times, want 2 (exactly one retry)", n)
	}
}

func TestHandleQuery_NonRetryableFailure_NotRetried(t *testing.T) {
	a := &countingAdapter{name: "news", fn: func(context.Context, map[string]string) adapter.Result {
		return adapter.Fail("bad params", false)
	}}
	gw := &fakeGateway{intent: wantIntent(intent.CapabilityRequest{Name: "news"})}
	o, _ := newTestOrchestrator(gw, []adapter.Adapter{a}, Options{})

	if _, err := o.HandleQuery(context.Background(), "s1", "news"); err != nil {
		t.Fatal(err)
	}
	if n := a.count(); n != 1 {
		t.Errorf("adapter invoked %d times, want 1", n)
	}
}

func TestHandleQuery_Timeout(t *testing.T) {
	a := &countingAdapter{name: "news", fn: func(ctx context.Context, _ map[string]string) adapter.Result {
		<-ctx.Done()
		return adapter.Ok("too late")
	}}
	gw := &fakeGateway{intent: wantIntent(intent.CapabilityRequest{Name: "news"})}
	o, _ := newTestOrchestrator(gw, []adapter.Adapter{a}, Options{AdapterTimeout: 20 * time.Millisecond})

	res, err := o.HandleQuery(context.Background(), "s1", "news")
	if err != nil {
		t.Fatal(err)
	}
	if res.State != StateCompletedPartial {
		t.Errorf("state = %s", res.State)
	}
	r := res.Results["news"]
	if r.OK || r.Reason != adapter.ReasonTimeout || !r.Retryable {
		t.Errorf("result = %+v, want retryable timeout failure", r)
	}
	// 超时可重试，所以是 2 次
	if n := a.count(); n != 2 {
		t.Errorf("adapter invoked %d times, want 2", n)
	}
}

func TestHandleQuery_PerCapabilityTimeoutOverride(t *testing.T) {
	news := &countingAdapter{name: "news", fn: func(ctx context.Context, _ map[string]string) adapter.Result {
		<-ctx.Done()
		return adapter.Ok("late")
	}}
	gw := &fakeGateway{intent: wantIntent(intent.CapabilityRequest{Name: "news"})}
	// 全局超时很长，但 news 被覆盖为 20ms，应按覆盖值超时
	o, _ := newTestOrchestrator(gw, []adapter.Adapter{news}, Options{
		AdapterTimeout:  10 * time.Second,
		AdapterTimeouts: map[string]time.Duration{"news": 20 * time.Millisecond},
	})

	start := time.Now()
	res, err := o.HandleQuery(context.Background(), "s1", "news")
	if err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("override not applied, query took %v", elapsed)
	}
	if r := res.Results["news"]; r.OK || r.Reason != adapter.ReasonTimeout {
		t.Errorf("result = %+v, want timeout failure", r)
	}
}

func TestHandleQuery_MixedTimeoutAndSuccess(t *testing.T) {
	weather := &countingAdapter{name: "weather"}
	news := &countingAdapter{name: "news", fn: func(ctx context.Context, _ map[string]string) adapter.Result {
		<-ctx.Done()
		return adapter.Ok("late")
	}}
	gw := &fakeGateway{intent: wantIntent(
		intent.CapabilityRequest{Name: "weather", Parameters: map[string]string{"location": "Paris"}},
		intent.CapabilityRequest{Name: "news", Parameters: map[string]string{"topic": "sports"}},
	)}
	o, _ := newTestOrchestrator(gw, []adapter.Adapter{weather, news}, Options{AdapterTimeout: 20 * time.Millisecond})

	res, err := o.HandleQuery(context.Background(), "s1", "weather and news")
	if err != nil {
		t.Fatal(err)
	}
	if res.State != StateCompletedPartial {
		t.Errorf("state = %s", res.State)
	}
	if !res.Results["weather"].OK {
		t.Errorf("weather = %+v", res.Results["weather"])
	}
	if res.Results["news"].Reason != adapter.ReasonTimeout {
		t.Errorf("news = %+v", res.Results["news"])
	}
}

func TestHandleQuery_DuplicateCapabilities_SingleInvoke(t *testing.T) {
	a := &countingAdapter{name: "weather"}
	gw := &fakeGateway{intent: wantIntent(
		intent.CapabilityRequest{Name: "weather", Parameters: map[string]string{"location": "Tokyo"}},
		intent.CapabilityRequest{Name: "weather", Parameters: map[string]string{"location": "Osaka"}},
	)}
	o, _ := newTestOrchestrator(gw, []adapter.Adapter{a}, Options{})

	res, err := o.HandleQuery(context.Background(), "s1", "weather twice")
	if err != nil {
		t.Fatal(err)
	}
	if n := a.count(); n != 1 {
		t.Errorf("adapter invoked %d times, want 1 (intent dedup keeps first)", n)
	}
	if len(res.Results) != 1 {
		t.Errorf("results = %v", res.Results)
	}
}

func TestHandleQuery_SessionIsolation(t *testing.T) {
	gw := &fakeGateway{intent: intent.Intent{}}
	o, store := newTestOrchestrator(gw, nil, Options{})

	if _, err := o.HandleQuery(context.Background(), "alice", "hi"); err != nil {
		t.Fatal(err)
	}
	if _, err := o.HandleQuery(context.Background(), "bob", "hello"); err != nil {
		t.Fatal(err)
	}

	alice := store.RecentTurns("alice", 10)
	bob := store.RecentTurns("bob", 10)
	if len(alice) != 1 || len(bob) != 1 {
		t.Fatalf("turns: alice=%d bob=%d", len(alice), len(bob))
	}
	if alice[0].Query != "hi" || bob[0].Query != "hello" {
		t.Errorf("cross-session leakage: alice=%q bob=%q", alice[0].Query, bob[0].Query)
	}

	o.PurgeSession("alice")
	if len(store.RecentTurns("alice", 10)) != 0 {
		t.Error("alice should be purged")
	}
	if len(store.RecentTurns("bob", 10)) != 1 {
		t.Error("bob must survive alice's purge")
	}
}

func TestHandleQuery_HistoryWindow(t *testing.T) {
	gw := &fakeGateway{intent: intent.Intent{}}
	o, _ := newTestOrchestrator(gw, nil, Options{HistoryWindow: 2})

	queries := []string{"first", "second", "third"}
	for _, q := range queries {
		if _, err := o.HandleQuery(context.Background(), "s1", q); err != nil {
			t.Fatal(err)
		}
	}

	// 第三次查询时分类器应只看到前两轮中最近的 2 轮，时间正序
	if len(gw.history) != 2 {
		t.Fatalf("history = %d turns, want 2", len(gw.history))
	}
	if gw.history[0].Query != "first" || gw.history[1].Query != "second" {
		t.Errorf("history order: %q, %q", gw.history[0].Query, gw.history[1].Query)
	}
}

func TestHandleQuery_TurnRecordsStateAndResults(t *testing.T) {
	bad := &countingAdapter{name: "news", fn: func(context.Context, map[string]string) adapter.Result {
		return adapter.Fail("down", false)
	}}
	gw := &fakeGateway{intent: wantIntent(intent.CapabilityRequest{Name: "news"})}
	o, store := newTestOrchestrator(gw, []adapter.Adapter{bad}, Options{})

	res, err := o.HandleQuery(context.Background(), "s1", "news")
	if err != nil {
		t.Fatal(err)
	}
	turns := store.RecentTurns("s1", 1)
	if len(turns) != 1 {
		t.Fatalf("turns = %d", len(turns))
	}
	turn := turns[0]
	if turn.QueryID != res.Query.ID {
		t.Errorf("turn query id = %q, want %q", turn.QueryID, res.Query.ID)
	}
	if turn.State != string(StateCompletedPartial) {
		t.Errorf("turn state = %q", turn.State)
	}
	if r, ok := turn.Results["news"]; !ok || r.OK {
		t.Errorf("turn results = %+v", turn.Results)
	}
}

func TestCacheKey_Normalization(t *testing.T) {
	k1 := cacheKey("Weather", map[string]string{"b": "Y ", "a": "X"})
	k2 := cacheKey("weather ", map[string]string{"a": "x", "b": "y"})
	if k1 != k2 {
		t.Errorf("keys differ: %q vs %q", k1, k2)
	}
	k3 := cacheKey("weather", map[string]string{"a": "z"})
	if k1 == k3 {
		t.Error("different params must yield different keys")
	}
}

func TestDeriveTerminal(t *testing.T) {
	if s := deriveTerminal(nil); s != StateCompleted {
		t.Errorf("empty results: %s", s)
	}
	ok := map[string]adapter.Result{"a": adapter.Ok(1)}
	if s := deriveTerminal(ok); s != StateCompleted {
		t.Errorf("all ok: %s", s)
	}
	mixed := map[string]adapter.Result{"a": adapter.Ok(1), "b": adapter.Fail("x", false)}
	if s := deriveTerminal(mixed); s != StateCompletedPartial {
		t.Errorf("mixed: %s", s)
	}
}
