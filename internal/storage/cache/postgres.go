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

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore Postgres 缓存存储：读时过滤过期行，删除走惰性路径。
// 适用于多副本共享同一响应缓存的部署。
type PostgresStore struct {
	pool *pgxpool.Pool
}

const pgCacheSchema = `
CREATE TABLE IF NOT EXISTS response_cache (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	expires_at TIMESTAMPTZ
)`

// NewPostgresStore 创建 Postgres 缓存存储并确保表存在
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, pgCacheSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("创建 response_cache 表failed: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Set 设置缓存（upsert，同 key 并发写为 last-write-wins）
func (s *PostgresStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	var expiresAt *time.Time
	if expiration > 0 {
		t := time.Now().Add(expiration)
		expiresAt = &t
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO response_cache (key, value, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		key, data, expiresAt)
	return err
}

// Get 获取缓存；过期行当场删除并按不存在处理
func (s *PostgresStore) Get(ctx context.Context, key string, dest interface{}) error {
	var data []byte
	var expiresAt *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT value, expires_at FROM response_cache WHERE key = $1`, key).Scan(&data, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("cache item with key %s not found", key)
		}
		return err
	}
	if expiresAt != nil && expiresAt.Before(time.Now()) {
		_, _ = s.pool.Exec(ctx, `DELETE FROM response_cache WHERE key = $1`, key)
		return fmt.Errorf("cache item with key %s not found", key)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return nil
}

// Delete 删除缓存
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM response_cache WHERE key = $1`, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cache item with key %s not found", key)
	}
	return nil
}

// Exists 检查缓存是否存在（过期视为不存在）
func (s *PostgresStore) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM response_cache
			WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())
		)`, key).Scan(&exists)
	return exists, err
}

// Clear 清除所有缓存
func (s *PostgresStore) Clear(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE response_cache`)
	return err
}

// Close 关闭连接池
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
