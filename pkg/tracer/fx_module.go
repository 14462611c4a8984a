package tracer

import (
	"context"

	"go.uber.org/fx"
)

// FXModule provides the tracer client and flushes it on shutdown.
var FXModule = fx.Module("tracer",
	fx.Provide(
		fx.Annotate(
			NewClient,
			fx.As(fx.Self()),
		),
	),
	fx.Invoke(RegisterTracerLifecycle),
)

// RegisterTracerLifecycle registers shutdown hooks for the tracer with the FX lifecycle.
// Pending spans are flushed to the exporter before the provider is shut down.
func RegisterTracerLifecycle(lc fx.Lifecycle, tracer *Tracer) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if tracer.tracer == nil {
				return nil
			}
			tracer.logger.Info("shutting down tracer", nil, nil)
			return tracer.tracer.Shutdown(ctx)
		},
	})
}
