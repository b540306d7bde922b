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

package http

import (
	"bytes"
	"context"
	stderrors "errors"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"

	"agent-platform/internal/adapter"
	"agent-platform/internal/conversation"
	"agent-platform/internal/intent"
	"agent-platform/internal/orchestrator"
	"agent-platform/internal/synthesis"
	"agent-platform/pkg/errors"
	"agent-platform/pkg/log"
	"agent-platform/pkg/metrics"
)

// Version 服务版本，构建时可用 -ldflags 覆盖
var Version = "dev"

// Handler HTTP 处理器
type Handler struct {
	orchestrator *orchestrator.Orchestrator
	synthesizer  synthesis.Synthesizer
	logger       *log.Logger
}

// NewHandler 创建新的 HTTP 处理器
func NewHandler(orch *orchestrator.Orchestrator, synth synthesis.Synthesizer, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		orchestrator: orch,
		synthesizer:  synth,
		logger:       logger.Named("http"),
	}
}

// QueryRequest 查询请求体
type QueryRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// QueryResponse 查询响应体
type QueryResponse struct {
	SessionID string                    `json:"session_id"`
	QueryID   string                    `json:"query_id"`
	State     string                    `json:"state"`
	Answer    string                    `json:"answer"`
	Intent    intent.Intent             `json:"intent"`
	Results   map[string]adapter.Result `json:"results"`
}

// Query 处理一次自然语言查询
func (h *Handler) Query(c context.Context, ctx *app.RequestContext) {
	var req QueryRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, map[string]string{
			"error": "请求体不是合法 JSON",
		})
		return
	}
	// 未带 session_id 视为新会话
	if req.SessionID == "" {
		req.SessionID = "session-" + uuid.New().String()
	}

	result, err := h.orchestrator.HandleQuery(c, req.SessionID, req.Text)
	if err != nil {
		if stderrors.Is(err, errors.ErrBadQuery) {
			metrics.QueryTotal.WithLabelValues("bad_query").Inc()
			ctx.JSON(consts.StatusBadRequest, map[string]string{
				"error": "query text must not be empty",
			})
			return
		}
		h.logger.Error("查询处理失败", "error", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{
			"error": "internal error",
		})
		return
	}

	answer, err := h.synthesizer.Synthesize(c, req.Text, result)
	if err != nil {
		// 合成器自带模板回退，到这里基本只剩编程错误
		h.logger.Error("回答合成失败", "query_id", result.Query.ID, "error", err)
		answer = "Sorry, I couldn't put together an answer this time."
	}

	ctx.JSON(consts.StatusOK, QueryResponse{
		SessionID: req.SessionID,
		QueryID:   result.Query.ID,
		State:     string(result.State),
		Answer:    answer,
		Intent:    result.Intent,
		Results:   result.Results,
	})
}

// Turns 返回会话最近 N 轮（最近在前）
func (h *Handler) Turns(c context.Context, ctx *app.RequestContext) {
	sessionID := ctx.Param("id")
	count := 10
	if raw := ctx.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			ctx.JSON(consts.StatusBadRequest, map[string]string{
				"error": "count must be a positive integer",
			})
			return
		}
		count = n
	}

	turns := h.orchestrator.RecentTurns(sessionID, count)
	if turns == nil {
		turns = []conversation.Turn{}
	}
	ctx.JSON(consts.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"turns":      turns,
		"total":      len(turns),
	})
}

// PurgeSession 清除会话历史；会话不存在也返回成功（幂等）
func (h *Handler) PurgeSession(c context.Context, ctx *app.RequestContext) {
	sessionID := ctx.Param("id")
	h.orchestrator.PurgeSession(sessionID)
	ctx.JSON(consts.StatusOK, map[string]string{
		"status":     "purged",
		"session_id": sessionID,
	})
}

// Capabilities 返回当前已注册能力
func (h *Handler) Capabilities(c context.Context, ctx *app.RequestContext) {
	caps := h.orchestrator.Capabilities()
	ctx.JSON(consts.StatusOK, map[string]interface{}{
		"capabilities": caps,
		"total":        len(caps),
	})
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]interface{}{
		"status":    "ok",
		"version":   Version,
		"timestamp": time.Now().Unix(),
	})
}

// Metrics 暴露 Prometheus 文本格式指标
func (h *Handler) Metrics(c context.Context, ctx *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		ctx.JSON(consts.StatusInternalServerError, map[string]string{
			"error": "metrics collection failed",
		})
		return
	}
	ctx.Data(consts.StatusOK, "text/plain; version=0.0.4; charset=utf-8", buf.Bytes())
}
