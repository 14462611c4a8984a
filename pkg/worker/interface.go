package worker

import (
	"context"

	"github.com/Aleph-Alpha/llmworker/pkg/llm"
	"github.com/Aleph-Alpha/llmworker/pkg/rabbit"
)

//go:generate mockgen -source=interface.go -destination=mock_interface.go -package=worker

// Completer produces the completion text for a prompt.
type Completer interface {
	Complete(ctx context.Context, provider llm.Provider, model, prompt string) (string, error)
	DefaultModel(provider llm.Provider) string
}

// Sink accepts finished replies. Enqueue must not block.
type Sink interface {
	Enqueue(msg rabbit.OutputMessage)
}

// Logger is the context-aware structured logger used by the processor.
type Logger interface {
	DebugWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}
