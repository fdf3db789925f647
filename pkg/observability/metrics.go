package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Access control metrics
	AccessDecisionsTotal     *prometheus.CounterVec
	IdentityResolutionsTotal *prometheus.CounterVec
	ApprovalTransitionsTotal *prometheus.CounterVec

	// Scope metrics
	ScopeCheckDuration *prometheus.HistogramVec

	// Notification metrics
	NotificationsEnqueuedTotal  prometheus.Counter
	NotificationsDeliveredTotal prometheus.Counter
	NotificationsFailedTotal    prometheus.Counter

	// Database pool metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agencyhub_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agencyhub_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		AccessDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agencyhub_access_decisions_total",
				Help: "Access control decisions by entity, action and outcome",
			},
			[]string{"entity", "action", "outcome", "reason"},
		),
		IdentityResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agencyhub_identity_resolutions_total",
				Help: "Identity resolutions by resolved kind",
			},
			[]string{"kind"},
		),
		ApprovalTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agencyhub_approval_transitions_total",
				Help: "Approval request transitions by target status",
			},
			[]string{"target"},
		),

		ScopeCheckDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agencyhub_scope_check_duration_seconds",
				Help:    "Time to build and evaluate a visibility scope",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"entity"},
		),

		NotificationsEnqueuedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agencyhub_notifications_enqueued_total",
			Help: "Notifications accepted into the delivery queue",
		}),
		NotificationsDeliveredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agencyhub_notifications_delivered_total",
			Help: "Notifications delivered successfully",
		}),
		NotificationsFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agencyhub_notifications_failed_total",
			Help: "Notification delivery failures",
		}),

		DBConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agencyhub_db_connections_active",
			Help: "Active database connections",
		}),
		DBConnectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agencyhub_db_connections_idle",
			Help: "Idle database connections",
		}),

		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AccessDecisionsTotal,
		m.IdentityResolutionsTotal,
		m.ApprovalTransitionsTotal,
		m.ScopeCheckDuration,
		m.NotificationsEnqueuedTotal,
		m.NotificationsDeliveredTotal,
		m.NotificationsFailedTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// RecordAccessDecision counts one permission or scope decision.
func (m *Metrics) RecordAccessDecision(entity, action string, allowed bool, reason string) {
	outcome := "allow"
	if !allowed {
		outcome = "deny"
	} else {
		reason = ""
	}
	m.AccessDecisionsTotal.WithLabelValues(entity, action, outcome, reason).Inc()
}

// UpdateDBStats copies connection pool stats into the gauges. Called
// periodically by the collector loop in the server binary.
func (m *Metrics) UpdateDBStats(stats sql.DBStats) {
	m.DBConnectionsActive.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
}

// Handler returns the /metrics scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// HTTPMiddleware instruments a handler with request count and duration.
// The route template, not the raw URL, should be used as the path label;
// gorilla/mux exposes it via CurrentRoute.
func (m *Metrics) HTTPMiddleware(pathLabel func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			path := pathLabel(r)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}
