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

package intent

import (
	"context"
	"strings"
	"testing"

	"agent-platform/internal/adapter"
	"agent-platform/internal/model/llm"
)

// scriptedClient 返回固定回复的 llm.Client，并记录收到的消息
type scriptedClient struct {
	reply    string
	err      error
	messages []llm.Message
}

func (c *scriptedClient) Chat(messages []llm.Message, options llm.GenerateOptions) (string, error) {
	return c.ChatWithContext(context.Background(), messages, options)
}

func (c *scriptedClient) ChatWithContext(ctx context.Context, messages []llm.Message, options llm.GenerateOptions) (string, error) {
	c.messages = messages
	return c.reply, c.err
}

func (c *scriptedClient) Model() string    { return "test-model" }
func (c *scriptedClient) Provider() string { return "test" }

func TestParseReply_PlainJSON(t *testing.T) {
	got := ParseReply(`{"capabilities":[{"name":"weather","parameters":{"location":"Paris"}}]}`)
	if len(got.Capabilities) != 1 {
		t.Fatalf("capabilities: %+v", got.Capabilities)
	}
	if got.Capabilities[0].Name != "weather" || got.Capabilities[0].Parameters["location"] != "Paris" {
		t.Errorf("parsed: %+v", got.Capabilities[0])
	}
}

func TestParseReply_MarkdownFenced(t *testing.T) {
	reply := "```json\n{\"capabilities\":[{\"name\":\"news\",\"parameters\":{\"topic\":\"tech\"}}]}\n```"
	got := ParseReply(reply)
	if len(got.Capabilities) != 1 || got.Capabilities[0].Name != "news" {
		t.Errorf("fenced reply not parsed: %+v", got)
	}
}

func TestParseReply_SurroundingProse(t *testing.T) {
	reply := `好的，我的判断是：{"capabilities":[{"name":"weather","parameters":{"location":"Tokyo"}}]}，希望有帮助`
	got := ParseReply(reply)
	if len(got.Capabilities) != 1 || got.Capabilities[0].Parameters["location"] != "Tokyo" {
		t.Errorf("prose-wrapped reply not parsed: %+v", got)
	}
}

func TestParseReply_Malformed_EmptyIntent(t *testing.T) {
	for _, reply := range []string{"", "完全不是 JSON", `{"capabilities": "oops"}`, "{broken"} {
		got := ParseReply(reply)
		if !got.Empty() {
			t.Errorf("reply %q should parse to empty intent, got %+v", reply, got)
		}
	}
}

func TestParseReply_DropsNamelessEntries(t *testing.T) {
	got := ParseReply(`{"capabilities":[{"name":""},{"name":"weather"}]}`)
	if len(got.Capabilities) != 1 || got.Capabilities[0].Name != "weather" {
		t.Errorf("nameless entries should be dropped: %+v", got)
	}
}

func TestIntent_Deduped(t *testing.T) {
	i := Intent{Capabilities: []CapabilityRequest{
		{Name: "weather", Parameters: map[string]string{"location": "Paris"}},
		{Name: "weather", Parameters: map[string]string{"location": "London"}},
		{Name: "news"},
	}}
	deduped := i.Deduped()
	if len(deduped) != 2 {
		t.Fatalf("deduped: %+v", deduped)
	}
	if deduped[0].Parameters["location"] != "Paris" {
		t.Error("dedupe should keep the first occurrence")
	}
}

func TestLLMGateway_Classify(t *testing.T) {
	client := &scriptedClient{reply: `{"capabilities":[{"name":"weather","parameters":{"location":"Paris"}}]}`}
	reg := adapter.NewRegistry()
	g := NewLLMGateway(client, reg)

	got, err := g.Classify(context.Background(), "weather in Paris", nil)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(got.Capabilities) != 1 || got.Capabilities[0].Name != "weather" {
		t.Errorf("intent: %+v", got)
	}
	if client.messages[0].Role != "system" {
		t.Error("first message should be the system prompt")
	}
	last := client.messages[len(client.messages)-1]
	if last.Role != "user" || last.Content != "weather in Paris" {
		t.Errorf("last message: %+v", last)
	}
}

func TestLLMGateway_Classify_HistoryAsMessages(t *testing.T) {
	client := &scriptedClient{reply: `{"capabilities":[]}`}
	g := NewLLMGateway(client, adapter.NewRegistry())

	history := []TurnContext{
		{Query: "weather in Paris", Reply: `{"weather":{"ok":true}}`},
		{Query: "and tomorrow?", Reply: `{"weather":{"ok":true}}`},
	}
	if _, err := g.Classify(context.Background(), "thanks", history); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	// system + 2*(user+assistant) + 当前 user
	if len(client.messages) != 6 {
		t.Fatalf("expected 6 messages, got %d", len(client.messages))
	}
	if client.messages[1].Content != "weather in Paris" || client.messages[2].Role != "assistant" {
		t.Errorf("history layout: %+v", client.messages[1:3])
	}
}

func TestLLMGateway_Classify_MalformedReply_NoError(t *testing.T) {
	client := &scriptedClient{reply: "我不太确定你要什么。"}
	g := NewLLMGateway(client, adapter.NewRegistry())
	got, err := g.Classify(context.Background(), "hmm", nil)
	if err != nil {
		t.Fatalf("malformed reply must not error: %v", err)
	}
	if !got.Empty() {
		t.Errorf("expected empty intent, got %+v", got)
	}
}

func TestLLMGateway_SystemPromptCarriesCapabilities(t *testing.T) {
	client := &scriptedClient{reply: `{"capabilities":[]}`}
	reg := adapter.NewRegistry()
	reg.Register(&promptProbeAdapter{})
	g := NewLLMGateway(client, reg)
	_, _ = g.Classify(context.Background(), "q", nil)
	if !strings.Contains(client.messages[0].Content, "probe capability for prompt") {
		t.Error("system prompt should embed registry descriptors")
	}
}

type promptProbeAdapter struct{}

func (p *promptProbeAdapter) Name() string                    { return "probe" }
func (p *promptProbeAdapter) Description() string             { return "probe capability for prompt" }
func (p *promptProbeAdapter) Parameters() []adapter.ParamSpec { return nil }
func (p *promptProbeAdapter) Invoke(ctx context.Context, params map[string]string) adapter.Result {
	return adapter.Ok(nil)
}
