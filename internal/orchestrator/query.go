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
	"time"

	"github.com/google/uuid"

	"agent-platform/internal/adapter"
	"agent-platform/internal/intent"
)

// Query 一次进入编排的请求，创建后不再修改
type Query struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
}

// NewQuery 创建 Query
func NewQuery(sessionID, text string) Query {
	return Query{
		ID:         "query-" + uuid.New().String(),
		SessionID:  sessionID,
		Text:       text,
		ReceivedAt: time.Now(),
	}
}

// Result 编排输出：终态、解析出的意图与按能力名索引的结果映射。
// 产出后不可变，是交给合成层的唯一单元。映射按 key 索引，不承诺顺序。
type Result struct {
	Query   Query                     `json:"query"`
	State   State                     `json:"state"`
	Intent  intent.Intent             `json:"intent"`
	Results map[string]adapter.Result `json:"results"`
}
