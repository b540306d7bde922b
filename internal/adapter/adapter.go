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

package adapter

import (
	"context"
)

// ReasonUnavailable 能力没有已注册 Adapter 时记录的失败原因
const ReasonUnavailable = "capability_unavailable"

// ReasonTimeout 单次调用超时时记录的失败原因
const ReasonTimeout = "timeout"

// Result 单次能力调用的结果：要么 OK 携带 Payload，要么 Failed 携带原因。
// 预期内的失败（参数缺失、限流、网络错误）必须走 Failed，不得以 error 抛出。
type Result struct {
	OK        bool   `json:"ok"`
	Payload   any    `json:"payload,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// Ok 构造成功结果
func Ok(payload any) Result {
	return Result{OK: true, Payload: payload}
}

// Fail 构造失败结果
func Fail(reason string, retryable bool) Result {
	return Result{Reason: reason, Retryable: retryable}
}

// ParamSpec 单个参数的描述（供意图分类器提示词使用）
type ParamSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Descriptor 能力描述：名称、用途与参数，注入分类器提示词
type Descriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []ParamSpec `json:"parameters,omitempty"`
}

// Adapter 能力适配器接口。每个后端数据源实现一个；
// Invoke 不修改任何共享状态，超时由编排器通过 ctx 控制。
type Adapter interface {
	Name() string
	Description() string
	Parameters() []ParamSpec
	Invoke(ctx context.Context, params map[string]string) Result
}
