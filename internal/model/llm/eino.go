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
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// EinoClient 走 eino ChatModel 的客户端，适配任意 OpenAI 兼容端点
type EinoClient struct {
	model     string
	chatModel *openai.ChatModel
}

// NewEinoClient 创建 eino ChatModel 客户端；baseURL 为空用 OpenAI 默认
func NewEinoClient(modelName, apiKey, baseURL string) (*EinoClient, error) {
	if modelName == "" {
		modelName = "gpt-3.5-turbo"
	}
	cfg := &openai.ChatModelConfig{
		Model:  modelName,
		APIKey: apiKey,
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	chatModel, err := openai.NewChatModel(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("创建 OpenAI ChatModel failed: %w", err)
	}
	return &EinoClient{model: modelName, chatModel: chatModel}, nil
}

// Chat 聊天
func (c *EinoClient) Chat(messages []Message, options GenerateOptions) (string, error) {
	return c.ChatWithContext(context.Background(), messages, options)
}

// ChatWithContext 使用上下文聊天
func (c *EinoClient) ChatWithContext(ctx context.Context, messages []Message, options GenerateOptions) (string, error) {
	in := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			in = append(in, schema.SystemMessage(msg.Content))
		case "assistant":
			in = append(in, schema.AssistantMessage(msg.Content, nil))
		default:
			in = append(in, schema.UserMessage(msg.Content))
		}
	}

	var opts []model.Option
	if options.Temperature > 0 {
		opts = append(opts, model.WithTemperature(float32(options.Temperature)))
	}
	if options.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(options.MaxTokens))
	}

	out, err := c.chatModel.Generate(ctx, in, opts...)
	if err != nil {
		return "", fmt.Errorf("eino ChatModel 调用failed: %w", err)
	}
	return out.Content, nil
}

// Model 返回模型名称
func (c *EinoClient) Model() string {
	return c.model
}

// Provider 返回提供商名称
func (c *EinoClient) Provider() string {
	return "eino"
}
