package api

import (
	"context"

	"github.com/Aleph-Alpha/llmworker/pkg/llm"
)

// Service is the completion backend behind the HTTP handlers.
type Service interface {
	Complete(ctx context.Context, provider llm.Provider, model, prompt string) (string, error)
	DefaultModel(provider llm.Provider) string
	ModelAllowed(model string) bool
	AllowedModels() []string
}

// Logger is the context-aware structured logger used by the HTTP layer.
type Logger interface {
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}
