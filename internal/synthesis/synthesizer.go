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

// Package synthesis 把编排结果合成面向用户的自然语言回答。
// LLM 合成不可用时回退到确定性模板，回答永远不会为空。
package synthesis

import (
	"context"

	"agent-platform/internal/orchestrator"
)

// Synthesizer 回答合成接口
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, result *orchestrator.Result) (string, error)
}
