package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Aleph-Alpha/llmworker/pkg/api"
	"github.com/Aleph-Alpha/llmworker/pkg/config"
	"github.com/Aleph-Alpha/llmworker/pkg/llm"
	"github.com/Aleph-Alpha/llmworker/pkg/logger"
	"github.com/Aleph-Alpha/llmworker/pkg/metrics"
	"github.com/Aleph-Alpha/llmworker/pkg/rabbit"
	"github.com/Aleph-Alpha/llmworker/pkg/tracer"
	"github.com/Aleph-Alpha/llmworker/pkg/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the worker",
	Long:  "Runs the queue consumers, the reply publisher, the HTTP API and the metrics endpoint until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		app := newApp(cfg)
		if err := app.Err(); err != nil {
			return fmt.Errorf("failed to build application: %w", err)
		}

		app.Run()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func newApp(cfg config.Config) *fx.App {
	return fx.New(appOptions(cfg))
}

// appOptions assembles the fx application.
func appOptions(cfg config.Config) fx.Option {
	return fx.Options(
		fx.WithLogger(logger.FXEventLogger),
		fx.StopTimeout(stopTimeout(cfg)),

		config.FXModule(cfg),
		logger.FXModule,
		fx.Provide(
			func(l *logger.Logger) tracer.Logger { return l },
			func(l *logger.Logger) metrics.Logger { return l },
			func(l *logger.Logger) llm.Logger { return l },
			func(l *logger.Logger) rabbit.Logger { return l },
			func(l *logger.Logger) worker.Logger { return l },
			func(l *logger.Logger) api.Logger { return l },
		),
		tracer.FXModule,
		metrics.FXModule,
		llm.FXModule,
		worker.FXModule,
		rabbit.FXModule,
		api.FXModule,

		fx.Invoke(func(lc fx.Lifecycle, l *logger.Logger, svc *llm.Service) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					names := make([]string, 0, len(svc.Configured()))
					for _, p := range svc.Configured() {
						names = append(names, p.String())
					}
					l.Info("llmworker starting", nil, map[string]interface{}{
						"version":              version,
						"queue":                cfg.Rabbit.QueueName,
						"channels":             cfg.Rabbit.ChannelCount,
						"configured_providers": names,
					})
					return nil
				},
			})
		}),
	)
}

// stopTimeout leaves room for the publisher's flush on top of the usual
// component shutdown.
func stopTimeout(cfg config.Config) time.Duration {
	return cfg.Rabbit.Publisher.ShutdownFlushTimeout + 15*time.Second
}
