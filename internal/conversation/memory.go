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
	"sync"
	"time"

	"agent-platform/pkg/metrics"
)

// MemoryStore 内存会话存储。两级锁：外层锁只保护会话表，
// 每个会话持有自己的锁——不同会话的读写互不阻塞。
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionState
	maxTurns int
}

// sessionState 单个会话的轮次历史与活跃时间
type sessionState struct {
	mu           sync.RWMutex
	turns        []Turn
	lastActivity time.Time
}

// NewMemoryStore 创建内存会话存储；maxTurns<=0 时默认 50
func NewMemoryStore(maxTurns int) *MemoryStore {
	if maxTurns <= 0 {
		maxTurns = 50
	}
	return &MemoryStore{
		sessions: make(map[string]*sessionState),
		maxTurns: maxTurns,
	}
}

// AppendTurn 实现 Store
func (m *MemoryStore) AppendTurn(sessionID string, turn Turn) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		s = &sessionState{}
		m.sessions[sessionID] = s
		metrics.ActiveSessions.Inc()
	}
	m.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turn)
	if len(s.turns) > m.maxTurns {
		// 只保留最近 maxTurns 轮；复制而非 re-slice，让旧轮次可被回收
		trimmed := make([]Turn, m.maxTurns)
		copy(trimmed, s.turns[len(s.turns)-m.maxTurns:])
		s.turns = trimmed
	}
	s.lastActivity = time.Now()
}

// RecentTurns 实现 Store：最新在前
func (m *MemoryStore) RecentTurns(sessionID string, count int) []Turn {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok || count <= 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.turns)
	if n == 0 {
		return nil
	}
	if count > n {
		count = n
	}
	out := make([]Turn, 0, count)
	for i := n - 1; i >= n-count; i-- {
		out = append(out, s.turns[i])
	}
	return out
}

// PurgeSession 实现 Store
func (m *MemoryStore) PurgeSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; ok {
		delete(m.sessions, sessionID)
		metrics.ActiveSessions.Dec()
	}
}

// LastActivity 实现 Store
func (m *MemoryStore) LastActivity(sessionID string) (time.Time, bool) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return time.Time{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity, true
}

// Sessions 实现 Store
func (m *MemoryStore) Sessions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}
