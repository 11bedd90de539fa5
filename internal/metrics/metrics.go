package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

var (
	// HTTPRequestsTotal 记录 HTTP 请求总量
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration 记录 HTTP 请求耗时
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_http_request_duration_seconds",
			Help:    "HTTP request latency distributions.",
			Buckets: []float64{0.05, 0.1, 0.3, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"method", "path"},
	)

	// CommissionAmountTotal 已记录佣金金额
	CommissionAmountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_commission_amount_total",
		Help: "The total amount of commissions recorded, by kind and operation.",
	}, []string{"kind", "operation"})

	// WithdrawalTransitionsTotal 提现状态流转次数
	WithdrawalTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_withdrawal_transitions_total",
		Help: "Total number of withdrawal status transitions.",
	}, []string{"action", "to_status"})

	// WithdrawalAmountTotal 提现金额（按目标状态）
	WithdrawalAmountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_withdrawal_amount_total",
		Help: "The total withdrawal amount entering each status.",
	}, []string{"status"})

	// WithdrawalRejectedTotal 提现创建被拒次数
	WithdrawalRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_withdrawal_create_rejected_total",
		Help: "Total number of rejected withdrawal create attempts.",
	}, []string{"reason"})

	// LedgerConflictsTotal 乐观锁冲突重试次数
	LedgerConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_version_conflicts_total",
		Help: "Total number of ledger version compare-and-swap conflicts.",
	})

	// TasksProcessedTotal 异步任务处理次数
	TasksProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_tasks_processed_total",
		Help: "Total number of processed async tasks.",
	}, []string{"task", "result"})
)

// ObserveCommission 记录佣金金额
func ObserveCommission(kind, operation string, amount decimal.Decimal) {
	value, _ := amount.Float64()
	CommissionAmountTotal.WithLabelValues(kind, operation).Add(value)
}

// ObserveWithdrawalTransition 记录提现状态流转
func ObserveWithdrawalTransition(action, toStatus string, amount decimal.Decimal) {
	WithdrawalTransitionsTotal.WithLabelValues(action, toStatus).Inc()
	value, _ := amount.Float64()
	WithdrawalAmountTotal.WithLabelValues(toStatus).Add(value)
}

// ObserveWithdrawalRejected 记录提现创建失败原因
func ObserveWithdrawalRejected(reason string) {
	WithdrawalRejectedTotal.WithLabelValues(reason).Inc()
}

// ObserveLedgerConflict 记录乐观锁冲突
func ObserveLedgerConflict() {
	LedgerConflictsTotal.Inc()
}

// ObserveTask 记录异步任务处理结果
func ObserveTask(task string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	TasksProcessedTotal.WithLabelValues(task, result).Inc()
}

// Middleware 返回 HTTP 监控中间件
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath() // 使用路由模板而不是具体路径

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		if path != "" {
			HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
			HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
		}
	}
}

// Handler 返回 prometheus 抓取处理器
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
