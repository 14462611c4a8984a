package llm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/Aleph-Alpha/llmworker/pkg/metrics"
	"github.com/Aleph-Alpha/llmworker/pkg/tracer"
)

// Service is the Completer backed by the provider registry.
type Service struct {
	cfg      Config
	registry *Registry
	logger   Logger
	metrics  *metrics.Metrics
	tracer   *tracer.Tracer
}

// NewService wires a registry built from cfg. metrics and tracer may be nil.
func NewService(cfg Config, registry *Registry, logger Logger, m *metrics.Metrics, t *tracer.Tracer) *Service {
	return &Service{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
		metrics:  m,
		tracer:   t,
	}
}

// Complete sends prompt to provider using model and returns the generated text.
func (s *Service) Complete(ctx context.Context, provider Provider, model, prompt string) (text string, err error) {
	if s.tracer != nil {
		var span trace.Span
		ctx, span = s.tracer.StartSpan(ctx, "llm.complete")
		s.tracer.SetAttributes(span, map[string]interface{}{
			"llm.provider": provider.String(),
			"llm.model":    model,
		})
		defer func() {
			if err != nil {
				s.tracer.RecordErrorOnSpan(span, err)
			}
			span.End()
		}()
	}

	start := time.Now()
	defer func() { s.metrics.ObserveCompletion(start, provider.String(), err) }()

	client, err := s.registry.Get(provider)
	if err != nil {
		return "", err
	}

	s.logger.DebugWithContext(ctx, "sending completion request", nil, map[string]interface{}{
		"provider":      provider.String(),
		"model":         model,
		"prompt_length": len(prompt),
	})

	text, err = client.Complete(ctx, model, prompt)
	if err != nil {
		s.logger.WarnWithContext(ctx, "completion request failed", err, map[string]interface{}{
			"provider": provider.String(),
			"model":    model,
			"duration": time.Since(start).String(),
		})
		return "", err
	}

	s.logger.DebugWithContext(ctx, "completion request succeeded", nil, map[string]interface{}{
		"provider":        provider.String(),
		"response_length": len(text),
		"duration":        time.Since(start).String(),
	})
	return text, nil
}

// DefaultModel returns the configured fallback model of provider.
func (s *Service) DefaultModel(provider Provider) string {
	return s.cfg.For(provider).DefaultModel
}

// Configured lists the providers that have credentials.
func (s *Service) Configured() []Provider {
	var out []Provider
	for _, p := range Providers() {
		if s.cfg.For(p).Configured() {
			out = append(out, p)
		}
	}
	return out
}

// ModelAllowed reports whether model passes the configured allow-list.
func (s *Service) ModelAllowed(model string) bool {
	return s.cfg.ModelAllowed(model)
}

// AllowedModels returns the configured allow-list.
func (s *Service) AllowedModels() []string {
	return s.cfg.AllowedModels
}
