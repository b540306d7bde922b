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
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"

	"agent-platform/internal/api/http/middleware"
)

// Router HTTP 路由器
type Router struct {
	handler *Handler
}

// NewRouter 创建新的 HTTP 路由器
func NewRouter(handler *Handler) *Router {
	return &Router{handler: handler}
}

// Register 把全部路由挂到 Hertz 实例上
func (r *Router) Register(h *server.Hertz) {
	h.Use(middleware.AccessLog(), middleware.Recovery(), middleware.CORS())

	h.GET("/health", r.handler.HealthCheck)
	h.GET("/metrics", r.handler.Metrics)

	api := h.Group("/api/v1")
	{
		api.POST("/query", r.handler.Query)
		api.GET("/capabilities", r.handler.Capabilities)

		sessions := api.Group("/sessions")
		{
			sessions.GET("/:id/turns", r.handler.Turns)
			sessions.DELETE("/:id", r.handler.PurgeSession)
		}
	}
}

// Build 创建 Hertz 实例并注册路由；opts 用于追加链路追踪等服务端选项
func (r *Router) Build(addr string, opts ...config.Option) *server.Hertz {
	serverOpts := append([]config.Option{server.WithHostPorts(addr)}, opts...)
	h := server.Default(serverOpts...)
	r.Register(h)
	return h
}
