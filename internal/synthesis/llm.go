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

package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"agent-platform/internal/model/llm"
	"agent-platform/internal/orchestrator"
	"agent-platform/pkg/log"
)

const synthesisSystemPrompt = `You are the answer composer of a query assistant.
You receive the user's question together with structured results gathered from capability adapters.
Compose a concise, natural answer using ONLY the information in the structured results.
Rules:
- Never invent facts that are not present in the results.
- If a capability failed, say so honestly and briefly (e.g. "I couldn't fetch the news right now").
- If the results are empty, tell the user what you can help with instead.
- Answer in the language of the user's question.`

// LLMSynthesizer 用 LLM 把结构化结果改写为自然语言。
// LLM 出错时回退到模板合成，保证总有回答。
type LLMSynthesizer struct {
	client   llm.Client
	fallback *TemplateSynthesizer
	logger   *log.Logger
}

func NewLLMSynthesizer(client llm.Client, logger *log.Logger) *LLMSynthesizer {
	if logger == nil {
		logger = log.Default()
	}
	return &LLMSynthesizer{
		client:   client,
		fallback: NewTemplateSynthesizer(),
		logger:   logger.Named("synthesis"),
	}
}

func (s *LLMSynthesizer) Synthesize(ctx context.Context, query string, result *orchestrator.Result) (string, error) {
	rendered, err := json.Marshal(result.Results)
	if err != nil {
		return s.fallback.Synthesize(ctx, query, result)
	}

	messages := []llm.Message{
		{Role: "system", Content: synthesisSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Question: %s\n\nStructured results (state %s):\n%s", query, result.State, rendered)},
	}
	reply, err := s.client.ChatWithContext(ctx, messages, llm.GenerateOptions{
		Temperature: 0.7,
		MaxTokens:   1024,
	})
	if err != nil || strings.TrimSpace(reply) == "" {
		s.logger.Warn("LLM 合成失败，回退模板", "query_id", result.Query.ID, "error", err)
		return s.fallback.Synthesize(ctx, query, result)
	}
	return strings.TrimSpace(reply), nil
}

// New 按配置选择合成器；provider 未知时默认 llm
func New(provider string, client llm.Client, logger *log.Logger) Synthesizer {
	if provider == "template" || client == nil {
		return NewTemplateSynthesizer()
	}
	return NewLLMSynthesizer(client, logger)
}
