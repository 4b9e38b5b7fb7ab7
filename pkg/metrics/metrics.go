// Package metrics 提供 Prometheus helper，包含撮合核心的业务指标
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wyfcoding/exchangecore/pkg/logger"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal prometheus.Counter
	// HTTP 请求耗时
	HTTPRequestDuration prometheus.Histogram

	// 订单提交计数
	OrdersTotal prometheus.Counter
	// 订单拒绝计数
	OrdersRejectedTotal prometheus.Counter
	// 订单取消计数
	CancelsTotal prometheus.Counter
	// 订单过期计数
	ExpiredTotal prometheus.Counter
	// 成交计数
	TradesTotal prometheus.Counter
	// 活跃订单数
	OrdersActive prometheus.Gauge
	// 熔断交易对数量
	PairsHalted prometheus.Gauge
	// 单笔订单撮合耗时
	MatchDuration prometheus.Histogram
	// 已发布事件计数
	EventsPublishedTotal prometheus.Counter
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		OrdersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "orders_total",
			Help:      "Total orders accepted for matching",
		}),
		OrdersRejectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "orders_rejected_total",
			Help:      "Total orders rejected before or during matching",
		}),
		CancelsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "cancels_total",
			Help:      "Total orders cancelled",
		}),
		ExpiredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "expired_total",
			Help:      "Total orders expired by sweep",
		}),
		TradesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "trades_total",
			Help:      "Total trades executed",
		}),
		OrdersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "orders_active",
			Help:      "Number of live orders across all pairs",
		}),
		PairsHalted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "pairs_halted",
			Help:      "Number of pairs halted after an invariant violation",
		}),
		MatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "match_duration_seconds",
			Help:      "Matching duration per submitted order",
			Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 12),
		}),
		EventsPublishedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "events_published_total",
			Help:      "Total domain events published",
		}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.OrdersTotal,
		m.OrdersRejectedTotal,
		m.CancelsTotal,
		m.ExpiredTotal,
		m.TradesTotal,
		m.OrdersActive,
		m.PairsHalted,
		m.MatchDuration,
		m.EventsPublishedTotal,
	}

	for _, c := range collectors {
		if err := prometheus.DefaultRegisterer.Register(c); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}

	logger.Info(context.Background(), "Metrics registered")
	return nil
}

// StartHTTPServer 启动 Prometheus HTTP 服务器
func StartHTTPServer(port int, path string) {
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info(context.Background(), "Starting Prometheus HTTP server", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error(context.Background(), "Prometheus HTTP server stopped", "error", err)
		}
	}()
}
