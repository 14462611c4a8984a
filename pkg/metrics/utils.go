package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ObserveDelivery counts a settled delivery.
// Example: m.ObserveDelivery(metrics.OutcomeAcked)
func (m *Metrics) ObserveDelivery(outcome string) {
	if m == nil {
		return
	}
	m.deliveriesTotal.WithLabelValues(outcome).Inc()
}

// DeliveryStarted increments the in-flight gauge and returns the matching decrement.
// Example: defer m.DeliveryStarted()()
func (m *Metrics) DeliveryStarted() func() {
	if m == nil {
		return func() {}
	}
	g := m.inflightDeliveries.WithLabelValues()
	g.Inc()
	return g.Dec
}

// ObserveCompletion records one provider call.
// Example: defer m.ObserveCompletion(time.Now(), "OpenAI", err)
func (m *Metrics) ObserveCompletion(start time.Time, provider string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.completionAttempts.WithLabelValues(provider, result).Inc()
	m.completionDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}

// SetOutputBacklog reports the number of buffered replies.
func (m *Metrics) SetOutputBacklog(n int) {
	if m == nil {
		return
	}
	m.outputBacklog.WithLabelValues().Set(float64(n))
}

// ObservePublish counts a reply publish result.
func (m *Metrics) ObservePublish(result string) {
	if m == nil {
		return
	}
	m.publishTotal.WithLabelValues(result).Inc()
}

// IncReconnect counts a reconnect attempt of a broker component
// ("supervisor", "channel" or "publisher").
func (m *Metrics) IncReconnect(component string) {
	if m == nil {
		return
	}
	m.reconnectsTotal.WithLabelValues(component).Inc()
}

// ObserveRequest records an HTTP request.
// Example: defer m.ObserveRequest(time.Now(), "/api/llm/send-message", status)
func (m *Metrics) ObserveRequest(start time.Time, route string, status int) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
}

func createCounterVec(namespace, name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

func createHistogramVec(namespace, name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		},
		labels,
	)
}

func createGaugeVec(namespace, name, help string, labels []string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		},
		labels,
	)
}
