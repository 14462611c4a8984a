package worker

import (
	"go.uber.org/fx"

	"github.com/Aleph-Alpha/llmworker/pkg/llm"
	"github.com/Aleph-Alpha/llmworker/pkg/metrics"
	"github.com/Aleph-Alpha/llmworker/pkg/rabbit"
	"github.com/Aleph-Alpha/llmworker/pkg/tracer"
)

// FXModule provides the *Processor and exposes it as the rabbit.Handler
// that the consuming channels dispatch to. Replies go to the
// *rabbit.Publisher.
var FXModule = fx.Module("worker",
	fx.Provide(
		NewProcessorFromParams,
		func(p *Processor) rabbit.Handler { return p },
	),
)

// ProcessorParams groups the dependencies of the processor.
type ProcessorParams struct {
	fx.In

	Config    Config
	Completer llm.Completer
	Publisher *rabbit.Publisher
	Logger    Logger
	Metrics   *metrics.Metrics `optional:"true"`
	Tracer    *tracer.Tracer   `optional:"true"`
}

// NewProcessorFromParams builds the processor from fx-injected dependencies.
func NewProcessorFromParams(p ProcessorParams) *Processor {
	return NewProcessor(p.Config, p.Completer, p.Publisher, p.Logger, p.Metrics, p.Tracer)
}
