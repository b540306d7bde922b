package cache

import (
	"context"
	"time"
)

// Store 缓存存储接口
type Store interface {
	// Set 设置缓存
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	// Get 获取缓存；不存在或已过期时返回错误
	Get(ctx context.Context, key string, dest interface{}) error
	// Delete 删除缓存
	Delete(ctx context.Context, key string) error
	// Exists 检查缓存是否存在
	Exists(ctx context.Context, key string) (bool, error)
	// Clear 清除所有缓存
	Clear(ctx context.Context) error
	// Close 关闭缓存连接
	Close() error
}

// Sweeper 可选的后台清扫能力。TTL 不依赖清扫——查找路径上永远不会
// 返回过期条目；清扫只是提前释放内存。Redis 原生过期、Postgres 读时
// 过滤，均无需实现。
type Sweeper interface {
	// SweepExpired 移除已过期条目，返回清除数量
	SweepExpired(ctx context.Context) int
}
