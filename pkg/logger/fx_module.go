package logger

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

// FXModule defines the Fx module for the logger package.
//
// Dependencies required by this module:
// - A logger.Config instance must be available in the dependency injection container
var FXModule = fx.Module("logger",
	fx.Provide(
		NewLoggerClient,
	),
	fx.Invoke(RegisterLoggerLifecycle),
)

// FXEventLogger routes fx's own lifecycle events through the application logger.
// Pass it to fx.WithLogger.
func FXEventLogger(l *Logger) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: l.Zap}
}

// RegisterLoggerLifecycle handles cleanup (sync) of the Zap logger.
func RegisterLoggerLifecycle(lc fx.Lifecycle, client *Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			// stderr sync returns EINVAL on some platforms; nothing useful to do with it
			_ = client.Zap.Sync()
			return nil
		},
	})
}
