package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Aleph-Alpha/llmworker/pkg/metrics"
)

// Server is the HTTP surface. Handler is exposed for tests.
type Server struct {
	Server  *http.Server
	Handler http.Handler
}

// NewRouter wires the routes and middleware. m may be nil.
func NewRouter(cfg Config, service Service, logger Logger, m *metrics.Metrics) chi.Router {
	h := NewLLMHandler(service, logger, cfg.RequestTimeout)

	r := chi.NewRouter()
	r.Use(CanonicalPath)
	r.Use(RequestID)
	r.Use(RequestLogger(logger, m))
	r.Use(middleware.Recoverer)
	r.Use(LimitBody(cfg.MaxBodyBytes))

	r.Get("/healthz", h.Health)
	r.Route("/api/llm", func(r chi.Router) {
		r.Post("/send-message", h.SendMessage)
		r.Get("/info", h.Info)
	})

	return r
}

// NewServer builds the HTTP server for cfg.Address.
func NewServer(cfg Config, service Service, logger Logger, m *metrics.Metrics) *Server {
	router := NewRouter(cfg, service, logger, m)
	return &Server{
		Handler: router,
		Server: &http.Server{
			Addr:              cfg.Address,
			Handler:           router,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		},
	}
}
