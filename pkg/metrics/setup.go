package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Delivery outcomes reported through ObserveDelivery.
const (
	OutcomeAcked     = "acked"
	OutcomeRequeued  = "requeued"
	OutcomeRejected  = "rejected"
	OutcomeAbandoned = "abandoned"
)

// Publish results reported through ObservePublish.
const (
	PublishConfirmed = "confirmed"
	PublishFailed    = "failed"
	PublishRequeued  = "requeued"
	PublishLost      = "lost"
)

// Metrics encapsulates the Prometheus registry and HTTP server responsible
// for exposing the worker's metrics.
//
// All observation methods are safe to call on a nil *Metrics, which lets
// components run without a metrics server in tests.
type Metrics struct {
	// Server defines the HTTP server used to expose the /metrics endpoint.
	Server *http.Server

	// Registry is the Prometheus registry where all metrics are registered.
	Registry *prometheus.Registry

	deliveriesTotal    *prometheus.CounterVec
	inflightDeliveries *prometheus.GaugeVec
	completionAttempts *prometheus.CounterVec
	completionDuration *prometheus.HistogramVec
	outputBacklog      *prometheus.GaugeVec
	publishTotal       *prometheus.CounterVec
	reconnectsTotal    *prometheus.CounterVec
	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
}

// NewMetrics initializes a dedicated Prometheus registry, registers the worker
// collectors under cfg.Namespace, wraps everything with a constant `service`
// label and creates the HTTP server exposing /metrics.
//
// Example:
//
//	m := metrics.NewMetrics(metrics.Config{Address: ":9090", ServiceName: "llmworker"})
//	go m.Server.ListenAndServe()
func NewMetrics(cfg Config) *Metrics {
	registry := prometheus.NewRegistry()

	wrappedRegistry := prometheus.WrapRegistererWith(
		prometheus.Labels{"service": cfg.ServiceName},
		registry,
	)

	if cfg.EnableDefaultCollectors {
		wrappedRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)
	}

	ns := cfg.Namespace
	m := &Metrics{Registry: registry}

	m.deliveriesTotal = createCounterVec(ns, "deliveries_total", "Deliveries handled, by final outcome", []string{"outcome"})
	m.inflightDeliveries = createGaugeVec(ns, "inflight_deliveries", "Deliveries received and not yet settled", nil)
	m.completionAttempts = createCounterVec(ns, "completion_attempts_total", "Completion provider calls, by provider and result", []string{"provider", "result"})
	m.completionDuration = createHistogramVec(ns, "completion_duration_seconds", "Latency of completion provider calls", []string{"provider"}, []float64{.25, .5, 1, 2.5, 5, 10, 20, 30, 60})
	m.outputBacklog = createGaugeVec(ns, "output_backlog", "Replies waiting in the output buffer", nil)
	m.publishTotal = createCounterVec(ns, "publish_total", "Reply publish attempts, by result", []string{"result"})
	m.reconnectsTotal = createCounterVec(ns, "reconnects_total", "Broker reconnect attempts, by component", []string{"component"})
	m.requestsTotal = createCounterVec(ns, "http_requests_total", "HTTP requests, by route and status", []string{"route", "status"})
	m.requestDuration = createHistogramVec(ns, "http_request_duration_seconds", "Duration of HTTP requests in seconds", []string{"route"}, prometheus.DefBuckets)

	wrappedRegistry.MustRegister(
		m.deliveriesTotal,
		m.inflightDeliveries,
		m.completionAttempts,
		m.completionDuration,
		m.outputBacklog,
		m.publishTotal,
		m.reconnectsTotal,
		m.requestsTotal,
		m.requestDuration,
	)

	addr := cfg.Address
	if addr == "" {
		addr = DefaultMetricsAddress
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	m.Server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	return m
}
