package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	calculations    *prometheus.CounterVec
	settlements     *prometheus.CounterVec
	reversals       prometheus.Counter
	debtPayments    *prometheus.CounterVec
	debtsOutstanding prometheus.Gauge
}

// New registers the instruments on the default registry.
func New() *Metrics {
	return &Metrics{
		httpRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wellbill_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wellbill_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		calculations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wellbill_period_calculations_total",
			Help: "Billing period calculations by outcome.",
		}, []string{"outcome"}),
		settlements: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wellbill_settlements_total",
			Help: "Period settlement payments by outcome.",
		}, []string{"outcome"}),
		reversals: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wellbill_settlement_reversals_total",
			Help: "Settlement payments reversed.",
		}),
		debtPayments: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wellbill_debt_payments_total",
			Help: "Debt payments by kind (full or partial).",
		}, []string{"kind"}),
		debtsOutstanding: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "wellbill_debts_outstanding",
			Help: "Open debts observed by the overdue sweep.",
		}),
	}
}

func (m *Metrics) RecordCalculation(outcome string) {
	if m == nil {
		return
	}
	m.calculations.WithLabelValues(strings.TrimSpace(outcome)).Inc()
}

func (m *Metrics) RecordSettlement(outcome string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(strings.TrimSpace(outcome)).Inc()
}

func (m *Metrics) RecordReversal() {
	if m == nil {
		return
	}
	m.reversals.Inc()
}

func (m *Metrics) RecordDebtPayment(kind string) {
	if m == nil {
		return
	}
	m.debtPayments.WithLabelValues(strings.TrimSpace(kind)).Inc()
}

func (m *Metrics) SetDebtsOutstanding(count int64) {
	if m == nil {
		return
	}
	m.debtsOutstanding.Set(float64(count))
}

// GinMiddleware records request counts and latency per route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
