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
)

// CapabilityRequest 分类出的单个能力请求：能力名 + 提取的参数
type CapabilityRequest struct {
	Name       string            `json:"name"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// Intent 分类结果。Capabilities 可为空——空意图是合法结果
// （"没听懂要查什么"），不是错误。
type Intent struct {
	Capabilities []CapabilityRequest `json:"capabilities"`
}

// Empty 是否为空意图
func (i Intent) Empty() bool {
	return len(i.Capabilities) == 0
}

// Deduped 返回按能力名去重后的请求列表（保留首个出现的参数）
func (i Intent) Deduped() []CapabilityRequest {
	if len(i.Capabilities) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(i.Capabilities))
	out := make([]CapabilityRequest, 0, len(i.Capabilities))
	for _, c := range i.Capabilities {
		if c.Name == "" || seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		out = append(out, c)
	}
	return out
}

// TurnContext 传给分类器的历史轮次：用户问题与当轮的结构化应答摘要
type TurnContext struct {
	Query string
	Reply string
}

// Gateway 意图分类网关。实现必须把"分类不出任何能力"表达为
// 空 Intent + nil error，而不是失败。
type Gateway interface {
	Classify(ctx context.Context, query string, history []TurnContext) (Intent, error)
}
