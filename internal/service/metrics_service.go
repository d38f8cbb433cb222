package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation. A nil *MetricsService is a no-op.
type MetricsService struct {
	registry            *prometheus.Registry
	handler             http.Handler
	requestDuration     *prometheus.HistogramVec
	requestTotal        *prometheus.CounterVec
	cacheLatency        prometheus.Observer
	cacheWrite          prometheus.Observer
	cacheLookups        *prometheus.CounterVec
	documentsUploaded   *prometheus.CounterVec
	pagesSplit          prometheus.Counter
	pageTextJobs        *prometheus.CounterVec
	notifications       *prometheus.CounterVec
	realtimeConnections prometheus.Gauge
}

// NewMetricsService registers the collectors on a private registry.
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	documentsUploaded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "documents_uploaded_total",
		Help: "Documents ingested by file extension",
	}, []string{"extension"})

	pagesSplit := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "document_pages_split_total",
		Help: "Pages produced by PDF splitting",
	})

	pageTextJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "page_text_jobs_total",
		Help: "Page text extraction jobs by result",
	}, []string{"result"})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Realtime notifications by event and result",
	}, []string{"event", "result"})

	realtimeConnections := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_connections",
		Help: "Open realtime connections",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheLookups,
		documentsUploaded, pagesSplit, pageTextJobs, notifications, realtimeConnections, goroutines)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		cacheLatency:        cacheLatency,
		cacheWrite:          cacheWrite,
		cacheLookups:        cacheLookups,
		documentsUploaded:   documentsUploaded,
		pagesSplit:          pagesSplit,
		pageTextJobs:        pageTextJobs,
		notifications:       notifications,
		realtimeConnections: realtimeConnections,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordDocumentUploaded counts an ingested document and the pages split from it.
func (m *MetricsService) RecordDocumentUploaded(extension string, pages int) {
	if m == nil {
		return
	}
	m.documentsUploaded.WithLabelValues(extension).Inc()
	if pages > 0 {
		m.pagesSplit.Add(float64(pages))
	}
}

// RecordPageTextJob counts a finished extraction job.
func (m *MetricsService) RecordPageTextJob(err error) {
	if m == nil {
		return
	}
	m.pageTextJobs.WithLabelValues(resultLabel(err)).Inc()
}

// RecordNotification counts a notification dispatch attempt.
func (m *MetricsService) RecordNotification(event string, err error) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(event, resultLabel(err)).Inc()
}

// SetRealtimeConnections updates the open connection gauge.
func (m *MetricsService) SetRealtimeConnections(n int) {
	if m == nil {
		return
	}
	m.realtimeConnections.Set(float64(n))
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
