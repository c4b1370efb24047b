// Package server wires the gateway routes and middleware chain.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/navigo-ai/navigo/pkg/gateway/config"
	"github.com/navigo-ai/navigo/pkg/gateway/handlers"
	"github.com/navigo-ai/navigo/pkg/gateway/live/session"
	"github.com/navigo-ai/navigo/pkg/gateway/live/sessions"
	"github.com/navigo-ai/navigo/pkg/gateway/metrics"
	"github.com/navigo-ai/navigo/pkg/gateway/mw"
	"github.com/navigo-ai/navigo/pkg/gateway/upstream"
)

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	sessions *sessions.Registry
	dial     handlers.UpstreamDialer
	tools    session.ToolDispatcher
	upCfg    upstream.GeminiConfig
}

// Dependencies carries the collaborators the routes need. Dial defaults to
// the real Gemini Live connector.
type Dependencies struct {
	Sessions       *sessions.Registry
	Dial           handlers.UpstreamDialer
	Tools          session.ToolDispatcher
	UpstreamConfig upstream.GeminiConfig
}

func New(cfg config.Config, logger *slog.Logger, deps Dependencies) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Sessions == nil {
		deps.Sessions = sessions.NewRegistry()
	}
	if deps.Dial == nil {
		deps.Dial = func(ctx context.Context, cfg upstream.GeminiConfig) (upstream.Stream, error) {
			return upstream.ConnectGemini(ctx, cfg)
		}
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		mux:      http.NewServeMux(),
		sessions: deps.Sessions,
		dial:     deps.Dial,
		tools:    deps.Tools,
		upCfg:    deps.UpstreamConfig,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("/healthz", handlers.HealthHandler{})
	s.mux.Handle("/readyz", handlers.ReadyHandler{Sessions: s.sessions})
	s.mux.Handle("/metrics", metrics.Handler())

	s.mux.Handle("/v1/live", handlers.LiveHandler{
		Config:         s.cfg,
		Dial:           s.dial,
		Logger:         s.logger,
		Sessions:       s.sessions,
		Tools:          s.tools,
		UpstreamConfig: s.upCfg,
	})

	s.mux.Handle("/", handlers.NotFoundHandler{})
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}
