package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the allocation engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	allocations     *prometheus.CounterVec
	notifications   prometheus.Counter
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	allocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allocations_total",
		Help: "Committed supervision allocations by track and mode",
	}, []string{"kind", "mode"})

	notifications := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_emitted_total",
		Help: "Notifications persisted after commit",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "deadline_cache_hits_total",
		Help: "Deadline lookups served from cache",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "deadline_cache_misses_total",
		Help: "Deadline lookups that hit the database",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, allocations, notifications, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		allocations:     allocations,
		notifications:   notifications,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
}

// RegisterQueueDepth exposes the buffered depth of a background queue as a
// gauge. Call before the first scrape.
func (m *MetricsService) RegisterQueueDepth(queue string, depth func() float64) {
	if m == nil || depth == nil {
		return
	}
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "queue_depth",
		Help:        "Jobs buffered in a background queue",
		ConstLabels: prometheus.Labels{"queue": queue},
	}, depth)
	m.registry.MustRegister(gauge)
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordAllocation counts one committed assignment.
func (m *MetricsService) RecordAllocation(kind, mode string) {
	if m == nil {
		return
	}
	m.allocations.WithLabelValues(kind, mode).Inc()
}

// RecordNotification counts one persisted notification.
func (m *MetricsService) RecordNotification() {
	if m == nil {
		return
	}
	m.notifications.Inc()
}

// RecordDeadlineLookup counts a deadline cache hit or miss.
func (m *MetricsService) RecordDeadlineLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		return
	}
	m.cacheMisses.Inc()
}
