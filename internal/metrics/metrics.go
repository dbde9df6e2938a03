package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "portops"

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Requests      *prometheus.CounterVec
	LatencyMS     *prometheus.HistogramVec
	OrdersCreated prometheus.Counter
	OrdersReplay  prometheus.Counter
	OrderFailures *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders committed with their items.",
		}),
		OrdersReplay: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_replayed_total",
			Help:      "Submissions answered with an existing order for the same idempotency key.",
		}),
		OrderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_failures_total",
			Help:      "Rejected or failed order submissions by reason.",
		}, []string{"reason"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Requests,
		m.LatencyMS,
		m.OrdersCreated,
		m.OrdersReplay,
		m.OrderFailures,
	)

	return m
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.LatencyMS.WithLabelValues(route).Observe(float64(elapsed.Milliseconds()))
}

func (m *Metrics) OrderCreated() {
	m.OrdersCreated.Inc()
}

func (m *Metrics) OrderReplayed() {
	m.OrdersReplay.Inc()
}

func (m *Metrics) OrderFailed(reason string) {
	m.OrderFailures.WithLabelValues(reason).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
