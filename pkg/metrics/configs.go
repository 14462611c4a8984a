package metrics

// DefaultMetricsAddress is used when no address is configured.
const DefaultMetricsAddress = ":9090"

// Config defines the configuration structure for the Prometheus metrics server.
// It contains settings that control how metrics are exposed and collected.
type Config struct {
	// Address determines the network address where the Prometheus
	// metrics HTTP server listens.
	//
	// Example values:
	//   - ":9090"   → Listen on all interfaces, port 9090
	//   - "127.0.0.1:9100" → Listen only on localhost, port 9100
	//
	// Environment variable: METRICS_ADDRESS
	Address string `envconfig:"ADDRESS" default:":9090"`

	// EnableDefaultCollectors controls whether the built-in Go runtime
	// and process metrics are automatically registered.
	//
	// Environment variable: METRICS_ENABLE_DEFAULT_COLLECTORS
	EnableDefaultCollectors bool `envconfig:"ENABLE_DEFAULT_COLLECTORS" default:"true"`

	// Namespace sets a global prefix for all metrics registered by this service.
	//
	// Example:
	//   Namespace: "llmworker"
	//   → Metric name becomes "llmworker_deliveries_total"
	//
	// Environment variable: METRICS_NAMESPACE
	Namespace string `envconfig:"NAMESPACE" default:"llmworker"`

	// ServiceName is attached to every metric as the constant "service" label.
	//
	// Environment variable: METRICS_SERVICE_NAME
	ServiceName string `envconfig:"SERVICE_NAME" default:"llmworker"`
}
