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

package synthesis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"agent-platform/internal/orchestrator"
)

// TemplateSynthesizer 确定性模板合成，无外部依赖。
// 既是独立的 provider，也是 LLM 合成失败时的回退路径。
type TemplateSynthesizer struct{}

func NewTemplateSynthesizer() *TemplateSynthesizer {
	return &TemplateSynthesizer{}
}

func (s *TemplateSynthesizer) Synthesize(_ context.Context, _ string, result *orchestrator.Result) (string, error) {
	if result == nil || len(result.Results) == 0 {
		return "I couldn't find any actionable request in your message. You can ask me about the weather or the news.", nil
	}

	// 结果映射无序，按能力名排序保证回答可复现
	names := make([]string, 0, len(result.Results))
	for name := range result.Results {
		names = append(names, name)
	}
	sort.Strings(names)

	var parts []string
	for _, name := range names {
		r := result.Results[name]
		if !r.OK {
			parts = append(parts, fmt.Sprintf("I couldn't get %s information (%s).", name, r.Reason))
			continue
		}
		switch name {
		case "weather":
			parts = append(parts, formatWeather(r.Payload))
		case "news":
			parts = append(parts, formatNews(r.Payload))
		default:
			parts = append(parts, fmt.Sprintf("%s: %v", name, r.Payload))
		}
	}
	return strings.Join(parts, " "), nil
}

func formatWeather(payload any) string {
	m, ok := payload.(map[string]any)
	if !ok {
		return fmt.Sprintf("Weather: %v", payload)
	}
	location := str(m["location"])
	condition := str(m["condition"])
	var b strings.Builder
	if location != "" {
		fmt.Fprintf(&b, "In %s it is currently", location)
	} else {
		b.WriteString("It is currently")
	}
	if condition != "" {
		fmt.Fprintf(&b, " %s", strings.ToLower(condition))
	}
	if t, ok := num(m["temperature"]); ok {
		fmt.Fprintf(&b, " at %.1f°C", t)
	}
	if fl, ok := num(m["feels_like"]); ok {
		fmt.Fprintf(&b, " (feels like %.1f°C)", fl)
	}
	if w, ok := num(m["wind_speed"]); ok {
		fmt.Fprintf(&b, ", wind %.1f km/h", w)
	}
	b.WriteString(".")
	return b.String()
}

func formatNews(payload any) string {
	m, ok := payload.(map[string]any)
	if !ok {
		return fmt.Sprintf("News: %v", payload)
	}
	articles := articleList(m["articles"])
	if len(articles) == 0 {
		return "No news articles were found."
	}
	topic := str(m["topic"])
	var b strings.Builder
	if topic != "" {
		fmt.Fprintf(&b, "Top headlines about %s:", topic)
	} else {
		b.WriteString("Top headlines:")
	}
	for i, a := range articles {
		title := str(a["title"])
		source := str(a["source"])
		if title == "" {
			continue
		}
		if source != "" {
			fmt.Fprintf(&b, " %d) %s (%s)", i+1, title, source)
		} else {
			fmt.Fprintf(&b, " %d) %s", i+1, title)
		}
	}
	return b.String()
}

// articleList 兼容两种形态：适配器直接返回的 []map[string]any，
// 以及缓存 JSON 往返后的 []any
func articleList(v any) []map[string]any {
	switch list := v.(type) {
	case []map[string]any:
		return list
	case []any:
		out := make([]map[string]any, 0, len(list))
		for _, raw := range list {
			if a, ok := raw.(map[string]any); ok {
				out = append(out, a)
			}
		}
		return out
	}
	return nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

// num JSON 反序列化后的数字是 float64，直接构造的 payload 可能是 int
func num(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
