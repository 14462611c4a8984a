package llm

import "context"

// Client talks to a single provider.
type Client interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// Completer is the provider-agnostic completion boundary used by the
// message processor and the HTTP surface.
type Completer interface {
	Complete(ctx context.Context, provider Provider, model, prompt string) (string, error)
	DefaultModel(provider Provider) string
}

// Logger is the logging surface the package needs.
type Logger interface {
	DebugWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}
