package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 客户端指标管理器
type Metrics struct {
	registry *prometheus.Registry

	// HTTP请求指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 缓存指标
	cacheHitsTotal   *prometheus.CounterVec
	cacheMissesTotal *prometheus.CounterVec

	// 业务指标
	businessCounter *prometheus.CounterVec
	sessionEvents   *prometheus.CounterVec
}

// NewMetrics 创建指标管理器，使用独立 registry，避免多实例重复注册
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "guardian",
				Name:      "client_requests_total",
				Help:      "Total number of backend requests",
			},
			[]string{"method", "route", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "guardian",
				Name:      "client_request_duration_seconds",
				Help:      "Backend request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		cacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "guardian",
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"cache"},
		),

		cacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "guardian",
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"cache"},
		),

		businessCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "guardian",
				Name:      "business_operations_total",
				Help:      "Total number of business operations",
			},
			[]string{"operation", "result"},
		),

		sessionEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "guardian",
				Name:      "session_events_total",
				Help:      "Session lifecycle events",
			},
			[]string{"event"},
		),
	}
}

// Registry 返回底层 registry，供导出或测试读取
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 以 Prometheus 文本格式导出本 registry
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordRequest 记录一次后端请求；status 为 0 表示未收到响应
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := "none"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.httpRequestsTotal.WithLabelValues(method, route, code).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordCache 记录缓存命中/未命中
func (m *Metrics) RecordCache(name string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHitsTotal.WithLabelValues(name).Inc()
		return
	}
	m.cacheMissesTotal.WithLabelValues(name).Inc()
}

// RecordBusinessOperation 记录业务操作
func (m *Metrics) RecordBusinessOperation(operation string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.businessCounter.WithLabelValues(operation, result).Inc()
}

// RecordSessionEvent 记录会话事件
func (m *Metrics) RecordSessionEvent(event string) {
	if m == nil {
		return
	}
	m.sessionEvents.WithLabelValues(event).Inc()
}
