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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  port: 9000
  host: "127.0.0.1"
log:
  level: "debug"
cache:
  type: "memory"
  ttl: "2m"
adapters:
  timeout: "4s"
  news:
    limit: 3
`
	path := filepath.Join(dir, "test.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port: got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host: got %q", cfg.Server.Host)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level: got %q", cfg.Log.Level)
	}
	if got := cfg.Cache.CacheTTL(); got != 2*time.Minute {
		t.Errorf("Cache.CacheTTL: got %v", got)
	}
	if got := cfg.Adapters.AdapterTimeout(""); got != 4*time.Second {
		t.Errorf("Adapters.AdapterTimeout: got %v", got)
	}
	if cfg.Adapters.News.Limit != 3 {
		t.Errorf("Adapters.News.Limit: got %d", cfg.Adapters.News.Limit)
	}
}

func TestLoadConfig_EnvExpansion(t *testing.T) {
	dir := t.TempDir()
	yaml := `
model:
  provider: "openai"
  api_key: "${TEST_ORCH_API_KEY}"
adapters:
  news:
    api_token: "${TEST_ORCH_NEWS_TOKEN}"
`
	path := filepath.Join(dir, "test.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	t.Setenv("TEST_ORCH_API_KEY", "sk-test")
	t.Setenv("TEST_ORCH_NEWS_TOKEN", "tok-test")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Model.APIKey != "sk-test" {
		t.Errorf("Model.APIKey: got %q", cfg.Model.APIKey)
	}
	if cfg.Adapters.News.APIToken != "tok-test" {
		t.Errorf("News.APIToken: got %q", cfg.Adapters.News.APIToken)
	}
}

func TestDurationDefaults(t *testing.T) {
	var cache CacheConfig
	if got := cache.CacheTTL(); got != 5*time.Minute {
		t.Errorf("empty TTL should default to 5m, got %v", got)
	}
	cache.TTL = "bogus"
	if got := cache.CacheTTL(); got != 5*time.Minute {
		t.Errorf("invalid TTL should default to 5m, got %v", got)
	}

	var adapters AdaptersConfig
	if got := adapters.AdapterTimeout(""); got != 3*time.Second {
		t.Errorf("empty adapter timeout should default to 3s, got %v", got)
	}
	adapters.Timeout = "10s"
	if got := adapters.AdapterTimeout("1s"); got != time.Second {
		t.Errorf("override should win over global timeout, got %v", got)
	}

	var conv ConversationConfig
	if got := conv.IdleTimeoutDuration(); got != 30*time.Minute {
		t.Errorf("empty idle timeout should default to 30m, got %v", got)
	}
}
