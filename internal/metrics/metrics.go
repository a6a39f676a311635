package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of http request",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status_code"},
	)

	// MatchTransitions 匹配状态变化次数
	MatchTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supermock_match_transitions_total",
			Help: "Match lifecycle transitions by resulting status",
		},
		[]string{"status"},
	)
	// LedgerEntries 积分流水条数
	LedgerEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supermock_ledger_entries_total",
			Help: "Ledger transactions written by type",
		},
		[]string{"type"},
	)
	// PurchaseDecisions 购买申请审批结果
	PurchaseDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supermock_purchase_decisions_total",
			Help: "Purchase request decisions by status",
		},
		[]string{"status"},
	)
)

// Middleware 记录请求数和耗时，path 使用路由模板避免标签爆炸
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// Handler 暴露 /metrics
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
