// Package metrics exposes Prometheus counters for the donation workflow.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager holds the application metrics on a private registry. A nil
// *Manager is valid and records nothing.
type Manager struct {
	Registry *prometheus.Registry

	DonationsCreatedTotal prometheus.Counter
	TransitionsTotal      *prometheus.CounterVec
	PickupCodesIssued     prometheus.Counter
	PickupCodeFailures    *prometheus.CounterVec
	MessagesSentTotal     prometheus.Counter
	DonationsExpiredTotal prometheus.Counter
	WSConnections         prometheus.Gauge
	HTTPRequestLatency    *prometheus.HistogramVec
}

func NewManager(namespace string) *Manager {
	registry := prometheus.NewRegistry()

	m := &Manager{
		Registry: registry,
		DonationsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "donations_created_total",
			Help:      "Total number of donations created.",
		}),
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "donation_transitions_total",
			Help:      "Donation status transitions by target status.",
		}, []string{"status"}),
		PickupCodesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pickup_codes_issued_total",
			Help:      "Pickup codes generated and delivered to donors.",
		}),
		PickupCodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pickup_code_failures_total",
			Help:      "Failed pickup code operations by reason.",
		}, []string{"reason"}),
		MessagesSentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_messages_sent_total",
			Help:      "Chat messages persisted.",
		}),
		DonationsExpiredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "donations_expired_by_sweep_total",
			Help:      "Pending donations expired by the background sweep.",
		}),
		WSConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Open realtime connections.",
		}),
		HTTPRequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}

	registry.MustRegister(
		m.DonationsCreatedTotal,
		m.TransitionsTotal,
		m.PickupCodesIssued,
		m.PickupCodeFailures,
		m.MessagesSentTotal,
		m.DonationsExpiredTotal,
		m.WSConnections,
		m.HTTPRequestLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Manager) DonationCreated() {
	if m == nil {
		return
	}
	m.DonationsCreatedTotal.Inc()
}

func (m *Manager) Transition(status string) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(status).Inc()
}

func (m *Manager) PickupCodeIssued() {
	if m == nil {
		return
	}
	m.PickupCodesIssued.Inc()
}

func (m *Manager) PickupCodeFailed(reason string) {
	if m == nil {
		return
	}
	m.PickupCodeFailures.WithLabelValues(reason).Inc()
}

func (m *Manager) MessageSent() {
	if m == nil {
		return
	}
	m.MessagesSentTotal.Inc()
}

func (m *Manager) DonationsExpired(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.DonationsExpiredTotal.Add(float64(n))
}

func (m *Manager) ConnectionOpened() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

func (m *Manager) ConnectionClosed() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

// Middleware records request latency labelled by the matched route.
func (m *Manager) Middleware() gin.HandlerFunc {
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
		m.HTTPRequestLatency.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
