package config

import (
	"go.uber.org/fx"

	"github.com/Aleph-Alpha/llmworker/pkg/api"
	"github.com/Aleph-Alpha/llmworker/pkg/llm"
	"github.com/Aleph-Alpha/llmworker/pkg/logger"
	"github.com/Aleph-Alpha/llmworker/pkg/metrics"
	"github.com/Aleph-Alpha/llmworker/pkg/rabbit"
	"github.com/Aleph-Alpha/llmworker/pkg/tracer"
	"github.com/Aleph-Alpha/llmworker/pkg/worker"
)

// FXModule supplies the root Config and provides each section to the
// package that consumes it.
func FXModule(cfg Config) fx.Option {
	return fx.Module("config",
		fx.Supply(cfg),
		fx.Provide(
			func(c Config) logger.Config { return c.Logger },
			func(c Config) tracer.Config { return c.Tracer },
			func(c Config) metrics.Config { return c.Metrics },
			func(c Config) rabbit.Config { return c.Rabbit },
			func(c Config) llm.Config { return c.LLM },
			func(c Config) worker.Config { return c.Worker },
			func(c Config) api.Config { return c.HTTP },
		),
	)
}
