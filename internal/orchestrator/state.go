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
	"agent-platform/internal/adapter"
)

// State 单次编排的状态机状态
type State string

const (
	StateReceived     State = "received"
	StateClassifying  State = "classifying"
	StateDispatching  State = "dispatching"
	StateAggregating  State = "aggregating"
	StateCompleted    State = "completed"
	// StateCompletedPartial 至少一个能力失败、但编排仍产出结果。
	// 整个查询没有 Failed 终态：全部失败也要把失败信息交给合成层。
	StateCompletedPartial State = "completed_partial"
)

// Terminal 是否终态
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCompletedPartial
}

// deriveTerminal 由聚合结果推导终态：有任何失败则 Completed-Partial，
// 否则（含零能力空结果）Completed。
func deriveTerminal(results map[string]adapter.Result) State {
	for _, r := range results {
		if !r.OK {
			return StateCompletedPartial
		}
	}
	return StateCompleted
}
