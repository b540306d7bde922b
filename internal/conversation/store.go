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
)

// Store 会话状态存储抽象。按 session id 隔离，未知会话读取返回空序列——
// 新会话的首轮永远成功。
type Store interface {
	// AppendTurn 追加一轮；超出每会话上限时淘汰最旧的轮次
	AppendTurn(sessionID string, turn Turn)
	// RecentTurns 返回最近 count 轮，最新在前
	RecentTurns(sessionID string, count int) []Turn
	// PurgeSession 释放该会话的全部状态
	PurgeSession(sessionID string)
	// LastActivity 返回该会话最后一次写入时间；不存在时 ok 为 false
	LastActivity(sessionID string) (time.Time, bool)
	// Sessions 返回当前持有状态的会话 id 列表（供空闲清扫）
	Sessions() []string
}
