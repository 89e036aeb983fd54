// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the application collectors. A nil *Metrics is a no-op.
type Metrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	relay     *prometheus.CounterVec
	finalized prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "portal",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		relay: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "relay_deliveries_total",
			Help:      "Relay webhook deliveries by mode and outcome.",
		}, []string{"mode", "outcome"}),
		finalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "attendance_days_finalized_total",
			Help:      "Attendance days finalized.",
		}),
	}
	reg.MustRegister(m.requests, m.latency, m.relay, m.finalized)
	return m
}

// Middleware records request counts and latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.latency.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// RelayDelivery counts one relay call.
func (m *Metrics) RelayDelivery(mode, outcome string) {
	if m == nil {
		return
	}
	m.relay.WithLabelValues(mode, outcome).Inc()
}

// DayFinalized counts a finalized attendance day.
func (m *Metrics) DayFinalized() {
	if m == nil {
		return
	}
	m.finalized.Inc()
}
