package logger

const (
	Debug   = "debug"
	Info    = "info"
	Warning = "warning"
	Error   = "error"
)

// Config controls verbosity and the static fields stamped on every entry.
type Config struct {
	// Level is one of debug, info, warning or error. Anything else means info.
	Level string `envconfig:"LEVEL" default:"info"`

	// ServiceName is attached to every log entry as the "service" field.
	ServiceName string `envconfig:"SERVICE_NAME" default:"llmworker"`

	// EnableTracing adds trace_id and span_id to entries logged with a context
	// that carries an active span.
	EnableTracing bool `envconfig:"ENABLE_TRACING" default:"true"`
}
