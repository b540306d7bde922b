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
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"agent-platform/internal/adapter"
)

const defaultNewsURL = "https://api.thenewsapi.com"

// NewsAdapter 新闻能力：TheNewsAPI 头条 / 主题检索
type NewsAdapter struct {
	baseURL  string
	apiToken string
	limit    int
	client   *resty.Client
}

// NewNewsAdapter 创建新闻适配器；limit<=0 时默认 5
func NewNewsAdapter(baseURL, apiToken string, limit int) *NewsAdapter {
	if baseURL == "" {
		baseURL = defaultNewsURL
	}
	if limit <= 0 {
		limit = 5
	}
	return &NewsAdapter{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		apiToken: apiToken,
		limit:    limit,
		client:   resty.New(),
	}
}

// Name 实现 adapter.Adapter
func (n *NewsAdapter) Name() string { return "news" }

// Description 实现 adapter.Adapter
func (n *NewsAdapter) Description() string {
	return "查询最新新闻；可按主题检索，不传主题时返回头条"
}

// Parameters 实现 adapter.Adapter
func (n *NewsAdapter) Parameters() []adapter.ParamSpec {
	return []adapter.ParamSpec{
		{Name: "topic", Description: "新闻主题关键词，如 tech、climate（可选）", Required: false},
	}
}

// newsResult TheNewsAPI 响应（仅取需要的字段）
type newsResult struct {
	Meta struct {
		Found int `json:"found"`
	} `json:"meta"`
	Data []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		Source      string `json:"source"`
		PublishedAt string `json:"published_at"`
	} `json:"data"`
}

// Invoke 实现 adapter.Adapter。402/429 视为限流可重试，401 不可重试。
func (n *NewsAdapter) Invoke(ctx context.Context, params map[string]string) adapter.Result {
	topic := strings.TrimSpace(params["topic"])

	endpoint := n.baseURL + "/v1/news/top"
	query := map[string]string{
		"api_token": n.apiToken,
		"language":  "en",
		"limit":     strconv.Itoa(n.limit),
	}
	if topic != "" {
		endpoint = n.baseURL + "/v1/news/all"
		query["search"] = topic
	}

	var result newsResult
	resp, err := n.client.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(&result).
		Get(endpoint)
	if err != nil {
		return adapter.Fail(fmt.Sprintf("news request failed: %v", err), true)
	}
	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return adapter.Fail("news api unauthorized", false)
	case http.StatusPaymentRequired, http.StatusTooManyRequests:
		return adapter.Fail("news api rate limited", true)
	default:
		return adapter.Fail(fmt.Sprintf("news api returned status %d", resp.StatusCode()), true)
	}

	articles := make([]map[string]any, 0, len(result.Data))
	for _, a := range result.Data {
		articles = append(articles, map[string]any{
			"title":        a.Title,
			"description":  a.Description,
			"url":          a.URL,
			"source":       a.Source,
			"published_at": a.PublishedAt,
		})
	}
	return adapter.Ok(map[string]any{
		"topic":    topic,
		"articles": articles,
		"total":    result.Meta.Found,
	})
}
