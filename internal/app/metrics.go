package app

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/klabast/wb-services/waste-sensor/internal/schedule"
)

const metricsNamespace = "waste"

// Metrics holds the Prometheus collectors of the sensor service
type Metrics struct {
	registry *prometheus.Registry

	refreshes      prometheus.Counter
	daysUntil      *prometheus.GaugeVec
	httpRequests   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

// NewMetrics creates the collectors on a dedicated registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sensor_refreshes_total",
			Help:      "Number of sensor refresh cycles",
		}),
		daysUntil: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "days_until_collection",
			Help:      "Days until the next collection of a waste type",
		}, []string{"type"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Number of HTTP API requests",
		}, []string{"route", "method", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP API request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	m.registry.MustRegister(m.refreshes, m.daysUntil, m.httpRequests, m.requestLatency)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRefresh records a refresh cycle and the distance to each next
// collection. Types without a collection are removed from the gauge.
func (m *Metrics) ObserveRefresh(today time.Time, next map[schedule.WasteType]*schedule.WasteSchedule) {
	m.refreshes.Inc()
	today = schedule.Date(today)
	for t, s := range next {
		if s == nil {
			m.daysUntil.DeleteLabelValues(string(t))
			continue
		}
		days := s.PickupDate.Sub(today).Hours() / 24
		m.daysUntil.WithLabelValues(string(t)).Set(days)
	}
}

// Instrument is a middleware counting requests per route pattern
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.requestLatency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
