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
	"encoding/json"
	"fmt"
	"strings"

	"agent-platform/internal/adapter"
	"agent-platform/internal/model/llm"
	"agent-platform/pkg/metrics"
)

// LLMGateway 基于 LLM 的意图分类网关：把注册表的能力描述注入系统提示词，
// 要求模型输出严格 JSON。任何解析失败都降级为空意图。
type LLMGateway struct {
	client   llm.Client
	registry *adapter.Registry
}

// NewLLMGateway 创建 LLM 分类网关
func NewLLMGateway(client llm.Client, registry *adapter.Registry) *LLMGateway {
	return &LLMGateway{client: client, registry: registry}
}

// Classify 实现 Gateway。history 可为空（会话首轮）。
func (g *LLMGateway) Classify(ctx context.Context, query string, history []TurnContext) (Intent, error) {
	if g.client == nil {
		metrics.ClassifyTotal.WithLabelValues("error").Inc()
		return Intent{}, fmt.Errorf("意图分类未配置 LLM client")
	}

	messages := make([]llm.Message, 0, len(history)*2+2)
	messages = append(messages, llm.Message{Role: "system", Content: g.systemPrompt()})
	for _, t := range history {
		messages = append(messages, llm.Message{Role: "user", Content: t.Query})
		if t.Reply != "" {
			messages = append(messages, llm.Message{Role: "assistant", Content: t.Reply})
		}
	}
	messages = append(messages, llm.Message{Role: "user", Content: query})

	opts := llm.GenerateOptions{MaxTokens: 512, Temperature: 0.1}
	reply, err := g.client.ChatWithContext(ctx, messages, opts)
	if err != nil {
		metrics.ClassifyTotal.WithLabelValues("error").Inc()
		return Intent{}, fmt.Errorf("意图分类 LLM 调用失败: %w", err)
	}

	parsed := ParseReply(reply)
	if parsed.Empty() {
		metrics.ClassifyTotal.WithLabelValues("empty").Inc()
	} else {
		metrics.ClassifyTotal.WithLabelValues("ok").Inc()
	}
	return parsed, nil
}

// systemPrompt 由注册表的能力描述构建分类提示词
func (g *LLMGateway) systemPrompt() string {
	capsJSON := "[]"
	if g.registry != nil {
		if b, err := g.registry.CapabilitiesJSON(); err == nil {
			capsJSON = string(b)
		}
	}
	return `你是一个意图分类器。根据用户问题（结合对话历史）判断需要调用哪些能力并提取参数。
可用能力列表（JSON）：
` + capsJSON + `

输出格式（仅输出合法 JSON，不要其他文字）：
{"capabilities":[{"name":"能力名","parameters":{"参数名":"参数值"}}]}
判定规则：
- "X 的天气"只需 weather；"关于 Y 的新闻"只需 news。
- 只给一个地名，或问"X 今天有什么情况"，同时需要该地的 weather 和 news。
- 追问（如"那明天呢"）要结合历史解析出完整参数。
- 寒暄、闲聊、无法对应任何能力时输出 {"capabilities":[]}。
- 不要编造列表之外的能力名。`
}

// ParseReply 解析模型回复为 Intent：剥掉 markdown 代码栅栏，截取首个
// { 到末个 } 之间的内容再反序列化；任何失败都返回空意图。
func ParseReply(reply string) Intent {
	reply = strings.TrimSpace(reply)
	if strings.HasPrefix(reply, "```") {
		reply = strings.TrimPrefix(reply, "```json")
		reply = strings.TrimPrefix(reply, "```")
		reply = strings.TrimSuffix(reply, "```")
		reply = strings.TrimSpace(reply)
	}
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return Intent{}
	}
	var out Intent
	if err := json.Unmarshal([]byte(reply[start:end+1]), &out); err != nil {
		return Intent{}
	}
	// 清掉无名条目，避免空能力名进入派发
	kept := out.Capabilities[:0]
	for _, c := range out.Capabilities {
		if strings.TrimSpace(c.Name) != "" {
			kept = append(kept, c)
		}
	}
	out.Capabilities = kept
	return out
}
