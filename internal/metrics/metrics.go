package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reseller_hub"

// Metrics 业务与 HTTP 指标
type Metrics struct {
	registry *prometheus.Registry

	HTTPInFlight  prometheus.Gauge
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	StoresCreated *prometheus.CounterVec
	StoreUpdates  *prometheus.CounterVec
	StoreErrors   *prometheus.CounterVec
	Verifications *prometheus.CounterVec
}

// New 创建指标集，各实例使用独立 Registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "route"}),

		StoresCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stores_created_total",
			Help:      "Stores provisioned, by domain type.",
		}, []string{"domain_type"}),
		StoreUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_updates_total",
			Help:      "Store PATCH requests, by outcome.",
		}, []string{"outcome"}),
		StoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Store operation failures, by operation and error kind.",
		}, []string{"operation", "kind"}),
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "domain_verifications_total",
			Help:      "Custom domain verification attempts, by result.",
		}, []string{"result"}),
	}
}

// Handler /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 测试用
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordStoreCreated 记录店铺创建
func (m *Metrics) RecordStoreCreated(customDomain bool) {
	domainType := "subdomain"
	if customDomain {
		domainType = "custom"
	}
	m.StoresCreated.WithLabelValues(domainType).Inc()
}

// RecordStoreUpdate outcome: updated / unchanged
func (m *Metrics) RecordStoreUpdate(outcome string) {
	m.StoreUpdates.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordStoreError(operation, kind string) {
	m.StoreErrors.WithLabelValues(operation, kind).Inc()
}

// RecordVerification result: verified / failed / error
func (m *Metrics) RecordVerification(result string) {
	m.Verifications.WithLabelValues(result).Inc()
}
