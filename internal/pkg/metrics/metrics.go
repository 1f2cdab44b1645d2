package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// 全部指标在 InitMetrics 中一次性注册；重复调用是空操作，
// 方便测试里随意初始化。
var (
	initOnce sync.Once

	// SearchRequestsTotal 按结果状态统计搜索请求数。
	SearchRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "phonescout",
		Name:      "search_requests_total",
		Help:      "Search requests by outcome.",
	}, []string{"outcome"})

	// SearchDuration 搜索耗时分布。
	SearchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "phonescout",
		Name:      "search_duration_seconds",
		Help:      "Search latency including scoring and sorting.",
		Buckets:   prometheus.DefBuckets,
	})

	// ComparisonSessionFullTotal 因会话已满被拒绝的加入次数。
	ComparisonSessionFullTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "phonescout",
		Name:      "comparison_session_full_total",
		Help:      "Add-to-comparison requests rejected because the session was full.",
	})

	// RefreshRunsTotal 刷新器完成的商品刷新次数。
	RefreshRunsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "phonescout",
		Name:      "refresh_runs_total",
		Help:      "Completed product price refreshes.",
	})

	// PriceDropsTotal 检测到的降价次数。
	PriceDropsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "phonescout",
		Name:      "price_drops_total",
		Help:      "Detected best-price drops.",
	})

	// RateLimitWaitDuration 限流等待耗时分布。
	RateLimitWaitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "phonescout",
		Name:      "ratelimit_wait_duration_seconds",
		Help:      "Time spent waiting for a rate limit token.",
		Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
	})

	// RateLimitTimeoutTotal 限流等待超时次数。
	RateLimitTimeoutTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "phonescout",
		Name:      "ratelimit_timeout_total",
		Help:      "Rate limit waits that timed out.",
	})

	// WorkerPoolSize 刷新器 worker 池大小。
	WorkerPoolSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "phonescout",
		Name:      "worker_pool_size",
		Help:      "Configured refresh worker pool size.",
	})
)

// InitMetrics 注册全部指标并记录 worker 池配置。幂等。
func InitMetrics(workerPoolSize int) {
	initOnce.Do(func() {
		prometheus.MustRegister(
			SearchRequestsTotal,
			SearchDuration,
			ComparisonSessionFullTotal,
			RefreshRunsTotal,
			PriceDropsTotal,
			RateLimitWaitDuration,
			RateLimitTimeoutTotal,
			WorkerPoolSize,
		)
	})
	WorkerPoolSize.Set(float64(workerPoolSize))
}
