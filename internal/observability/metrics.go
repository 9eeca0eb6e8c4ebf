// Package observability owns the Prometheus registry for HTTP and domain metrics.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	customerImports *prometheus.CounterVec
	salesRecorded   prometheus.Counter
	payments        *prometheus.CounterVec
	closures        prometheus.Counter
	cacheLookups    *prometheus.CounterVec
}

// NewMetrics initialises the registry with HTTP and domain collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bizdesk_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bizdesk_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	imports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bizdesk_customers_written_total",
		Help: "Customer rows handled by the single and bulk paths, by outcome.",
	}, []string{"path", "outcome"})
	sales := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bizdesk_sales_recorded_total",
		Help: "Sales recorded.",
	})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bizdesk_investment_payments_total",
		Help: "Investment payments applied, by resulting state.",
	}, []string{"state"})
	closures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bizdesk_investment_closures_total",
		Help: "Investments closed explicitly.",
	})
	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bizdesk_dashboard_cache_lookups_total",
		Help: "Dashboard cache lookups by result.",
	}, []string{"result"})
	registry.MustRegister(
		requests, duration, imports, sales, payments, closures, cacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		customerImports: imports,
		salesRecorded:   sales,
		payments:        payments,
		closures:        closures,
		cacheLookups:    cacheLookups,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// CustomerWritten counts one customer row. path is "single" or "bulk",
// outcome is "inserted" or "skipped".
func (m *Metrics) CustomerWritten(path, outcome string) {
	if m == nil {
		return
	}
	m.customerImports.WithLabelValues(path, outcome).Inc()
}

// SaleRecorded counts one stored sale.
func (m *Metrics) SaleRecorded() {
	if m == nil {
		return
	}
	m.salesRecorded.Inc()
}

// PaymentApplied counts one investment payment.
func (m *Metrics) PaymentApplied(closed bool) {
	if m == nil {
		return
	}
	state := "open"
	if closed {
		state = "closed"
	}
	m.payments.WithLabelValues(state).Inc()
}

// InvestmentClosed counts an explicit closure.
func (m *Metrics) InvestmentClosed() {
	if m == nil {
		return
	}
	m.closures.Inc()
}

// CacheLookup counts a dashboard cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
