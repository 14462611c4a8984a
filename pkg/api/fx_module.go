package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/llmworker/pkg/llm"
	"github.com/Aleph-Alpha/llmworker/pkg/metrics"
)

// FXModule provides the *Server backed by *llm.Service and serves it for
// the lifetime of the application when enabled.
var FXModule = fx.Module("api",
	fx.Provide(NewServerFromParams),
	fx.Invoke(RegisterServerLifecycle),
)

// ServerParams groups the dependencies of the HTTP server.
type ServerParams struct {
	fx.In

	Config  Config
	Service *llm.Service
	Logger  Logger
	Metrics *metrics.Metrics `optional:"true"`
}

// NewServerFromParams builds the server from fx-injected dependencies.
func NewServerFromParams(p ServerParams) *Server {
	return NewServer(p.Config, p.Service, p.Logger, p.Metrics)
}

// RegisterServerLifecycle binds the listener on start, so a taken port fails
// startup, and shuts the server down gracefully on stop.
func RegisterServerLifecycle(lc fx.Lifecycle, cfg Config, s *Server, logger Logger) {
	if !cfg.Enabled {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", s.Server.Addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", s.Server.Addr, err)
			}

			logger.InfoWithContext(ctx, "starting HTTP server", nil, map[string]interface{}{
				"address": ln.Addr().String(),
			})

			go func() {
				if err := s.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.ErrorWithContext(context.Background(), "HTTP server stopped unexpectedly", err, nil)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.InfoWithContext(ctx, "shutting down HTTP server", nil, nil)
			return s.Server.Shutdown(ctx)
		},
	})
}
