package tracer

// Config controls the OpenTelemetry tracer provider.
type Config struct {
	// ServiceName is reported as the service.name resource attribute.
	ServiceName string `envconfig:"SERVICE_NAME" default:"llmworker"`

	// AppEnv is reported as deployment.environment.
	AppEnv string `envconfig:"APP_ENV" default:"development"`

	// EnableExport turns on the OTLP/HTTP exporter. The endpoint is taken from
	// the standard OTEL_EXPORTER_OTLP_* variables.
	EnableExport bool `envconfig:"ENABLE_EXPORT" default:"false"`
}
