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

package builtin

import (
	"context"

	"agent-platform/internal/adapter"
	"agent-platform/pkg/config"
	"agent-platform/pkg/log"
	"agent-platform/pkg/secrets"
)

// newsTokenSecretKey 配置未提供 token 时从 secret store 解析的键
const newsTokenSecretKey = "THENEWSAPI_KEY"

// RegisterBuiltin 按配置与可用性注册内置能力。
// 天气无需 Key，配置启用即注册；新闻只有在解析到 API token 时注册——
// 未配置的能力不出现在注册表里，对它的请求会降级为 capability_unavailable。
func RegisterBuiltin(reg *adapter.Registry, cfg config.AdaptersConfig, store secrets.Store, logger *log.Logger) {
	if reg == nil {
		return
	}

	if enabled(cfg.Weather.Enabled) {
		reg.Register(NewWeatherAdapter(cfg.Weather.GeocodeURL, cfg.Weather.ForecastURL))
		if logger != nil {
			logger.Info("能力已注册", "capability", "weather")
		}
	}

	if enabled(cfg.News.Enabled) {
		token := cfg.News.APIToken
		if token == "" && store != nil {
			if v, err := store.Get(context.Background(), newsTokenSecretKey); err == nil {
				token = v
			}
		}
		if token != "" {
			reg.Register(NewNewsAdapter(cfg.News.BaseURL, token, cfg.News.Limit))
			if logger != nil {
				logger.Info("能力已注册", "capability", "news")
			}
		} else if logger != nil {
			logger.Warn("news 能力未注册：未解析到 API token", "secret_key", newsTokenSecretKey)
		}
	}
}

// enabled 未配置时默认启用
func enabled(flag *bool) bool {
	return flag == nil || *flag
}
