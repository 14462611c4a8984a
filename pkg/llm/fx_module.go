package llm

import (
	"go.uber.org/fx"

	"github.com/Aleph-Alpha/llmworker/pkg/metrics"
	"github.com/Aleph-Alpha/llmworker/pkg/tracer"
)

// ServiceParams groups the dependencies of the completion service.
type ServiceParams struct {
	fx.In

	Config   Config
	Registry *Registry
	Logger   Logger
	Metrics  *metrics.Metrics `optional:"true"`
	Tracer   *tracer.Tracer   `optional:"true"`
}

// FXModule provides the provider registry, *Service and the Completer built on it.
var FXModule = fx.Module("llm",
	fx.Provide(
		NewFactory,
		NewRegistry,
		func(p ServiceParams) *Service {
			return NewService(p.Config, p.Registry, p.Logger, p.Metrics, p.Tracer)
		},
		func(s *Service) Completer { return s },
	),
)
