package rabbit

import (
	"context"
	"sync"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/llmworker/pkg/metrics"
)

// FXModule provides the broker components and runs the supervisor and the
// output publisher for the lifetime of the application. It requires a
// Config, a Logger and a Handler; *metrics.Metrics is optional.
var FXModule = fx.Module("rabbit",
	fx.Provide(
		NewDialer,
		newPoolFromParams,
		newSupervisorFromParams,
		newPublisherFromParams,
	),
	fx.Invoke(RegisterRabbitLifecycle),
)

// PoolParams groups the dependencies of the consuming channel pool.
type PoolParams struct {
	fx.In

	Config  Config
	Handler Handler
	Logger  Logger
	Metrics *metrics.Metrics `optional:"true"`
}

func newPoolFromParams(p PoolParams) *Pool {
	return NewPool(p.Config, p.Handler, p.Logger, p.Metrics)
}

// SupervisorParams groups the dependencies of the connection supervisor.
type SupervisorParams struct {
	fx.In

	Config  Config
	Dialer  Dialer
	Pool    *Pool
	Logger  Logger
	Metrics *metrics.Metrics `optional:"true"`
}

func newSupervisorFromParams(p SupervisorParams) *Supervisor {
	return NewSupervisor(p.Config, p.Dialer, p.Pool, p.Logger, p.Metrics)
}

// PublisherParams groups the dependencies of the output publisher.
type PublisherParams struct {
	fx.In

	Config  Config
	Dialer  Dialer
	Logger  Logger
	Metrics *metrics.Metrics `optional:"true"`
}

func newPublisherFromParams(p PublisherParams) *Publisher {
	return NewPublisher(p.Config, p.Dialer, p.Logger, p.Metrics)
}

// RegisterRabbitLifecycle starts the supervisor and the publisher in
// background goroutines and stops both on shutdown, waiting for the
// publisher's flush. If the supervisor gives up (automatic recovery off)
// the application is shut down.
func RegisterRabbitLifecycle(lc fx.Lifecycle, sd fx.Shutdowner, sup *Supervisor, pub *Publisher, logger Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			wg.Add(2)
			go func() {
				defer wg.Done()
				if err := sup.Run(ctx); err != nil {
					logger.ErrorWithContext(ctx, "connection supervisor exited", err, nil)
					_ = sd.Shutdown(fx.ExitCode(1))
				}
			}()
			go func() {
				defer wg.Done()
				_ = pub.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			logger.InfoWithContext(stopCtx, "stopping rabbitmq components", nil, nil)
			cancel()

			done := make(chan struct{})
			go func() {
				wg.Wait()
				close(done)
			}()

			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
