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

package conversation

import (
	"time"

	"agent-platform/internal/adapter"
	"agent-platform/internal/intent"
)

// Turn 一次完整的问答轮次：原始问题、解析出的意图与按能力聚合的结果。
// 追加后不再修改。
type Turn struct {
	QueryID   string                    `json:"query_id"`
	Query     string                    `json:"query"`
	Intent    intent.Intent             `json:"intent"`
	State     string                    `json:"state"`
	Results   map[string]adapter.Result `json:"results"`
	CreatedAt time.Time                 `json:"created_at"`
}
