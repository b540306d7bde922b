package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		QueryDuration, QueryTotal,
		ClassifyTotal, AdapterDuration, AdapterInvokeTotal, AdapterRetryTotal,
		CacheHitTotal, CacheMissTotal, CacheEvictionTotal,
		ActiveSessions, RateLimitWaitSeconds,
	)
}

// QueryDuration 单次编排耗时（秒）
var QueryDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "coagent_query_duration_seconds",
		Help:    "单次编排耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"state"},
)

// QueryTotal 查询总数（按终态）
var QueryTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "coagent_query_total",
		Help: "查询总数（按终态）",
	},
	[]string{"state"}, // completed | completed_partial | bad_query
)

// ClassifyTotal 意图分类结果总数
var ClassifyTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "coagent_classify_total",
		Help: "意图分类结果总数",
	},
	[]string{"outcome"}, // ok | empty | error
)

// AdapterDuration 适配器调用耗时（秒）
var AdapterDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "coagent_adapter_duration_seconds",
		Help:    "适配器调用耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"capability"},
)

// AdapterInvokeTotal 适配器调用总数（按结果）
var AdapterInvokeTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "coagent_adapter_invoke_total",
		Help: "适配器调用总数（按结果）",
	},
	[]string{"capability", "outcome"}, // ok | failed | unavailable | cached
)

// AdapterRetryTotal 适配器重试总数
var AdapterRetryTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "coagent_adapter_retry_total",
		Help: "适配器重试总数",
	},
	[]string{"capability"},
)

// CacheHitTotal 响应缓存命中总数
var CacheHitTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "coagent_cache_hit_total",
		Help: "响应缓存命中总数",
	},
	[]string{"capability"},
)

// CacheMissTotal 响应缓存未命中总数
var CacheMissTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "coagent_cache_miss_total",
		Help: "响应缓存未命中总数",
	},
	[]string{"capability"},
)

// CacheEvictionTotal 缓存淘汰总数（按原因）
var CacheEvictionTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "coagent_cache_eviction_total",
		Help: "缓存淘汰总数（按原因）",
	},
	[]string{"reason"}, // expired | lru
)

// ActiveSessions 当前持有会话状态的会话数
var ActiveSessions = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "coagent_active_sessions",
		Help: "当前持有会话状态的会话数",
	},
)

// RateLimitWaitSeconds 限流等待耗时（秒），仅记录超过 100ms 的等待
var RateLimitWaitSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "coagent_rate_limit_wait_seconds",
		Help:    "限流等待耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"kind", "provider"},
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 等复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
