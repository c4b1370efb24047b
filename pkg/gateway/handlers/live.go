// Package handlers holds the HTTP endpoints of the gateway. The live
// handler upgrades the request to a websocket, connects the backend stream,
// and hands both ends to a session.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/navigo-ai/navigo/pkg/gateway/config"
	"github.com/navigo-ai/navigo/pkg/gateway/live/session"
	"github.com/navigo-ai/navigo/pkg/gateway/live/sessions"
	"github.com/navigo-ai/navigo/pkg/gateway/mw"
	"github.com/navigo-ai/navigo/pkg/gateway/upstream"
)

// UpstreamDialer opens a backend stream for one session. Swapped for a fake
// in tests.
type UpstreamDialer func(ctx context.Context, cfg upstream.GeminiConfig) (upstream.Stream, error)

// LiveHandler handles /v1/live websocket sessions.
type LiveHandler struct {
	Config   config.Config
	Dial     UpstreamDialer
	Logger   *slog.Logger
	Sessions *sessions.Registry
	Tools    session.ToolDispatcher

	// UpstreamConfig templates the per-session backend config: model, voice,
	// instruction, credentials, declared tools.
	UpstreamConfig upstream.GeminiConfig
}

func (h LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.originAllowed(r) {
		http.Error(w, "origin is not allowed", http.StatusForbidden)
		return
	}

	upgrader := websocket.Upgrader{
		// Origin was validated above against the configured allowlist.
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	clientID := "c_" + uuid.NewString()
	sessionID := "s_" + uuid.NewString()
	reqID, _ := mw.RequestIDFrom(r.Context())
	logger = logger.With("client_id", clientID, "session_id", sessionID, "request_id", reqID)

	upCfg := h.UpstreamConfig
	upCfg.Logger = logger
	upCfg.ResumeHandle = strings.TrimSpace(r.URL.Query().Get("resume"))

	stream, err := h.Dial(r.Context(), upCfg)
	if err != nil {
		logger.Error("could not connect backend stream", "error", err)
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "backend unavailable")
		_ = conn.WriteMessage(websocket.CloseMessage, msg)
		return
	}

	s, err := session.New(session.Dependencies{
		Conn:      conn,
		Upstream:  stream,
		Tools:     h.Tools,
		Logger:    logger,
		SessionID: sessionID,
		ClientID:  clientID,
		Config: session.Config{
			AudioQueueSize:    h.Config.AudioQueueSize,
			VideoQueueSize:    h.Config.VideoQueueSize,
			OutboundQueueSize: h.Config.OutboundQueueSize,
			SendSampleRate:    h.Config.SendSampleRate,
			PingInterval:      h.Config.WSPingInterval,
			WriteTimeout:      h.Config.WSWriteTimeout,
			MaxMessageBytes:   h.Config.MaxMessageBytes,
		},
	})
	if err != nil {
		logger.Error("could not build session", "error", err)
		_ = stream.Close()
		return
	}

	unregister := h.Sessions.Register(sessionID, sessions.Handle{Outbound: s, Cancel: s.Cancel})
	defer unregister()

	logger.Info("live session started")
	if err := s.Run(); err != nil {
		logger.Error("live session ended with error", "error", err)
		return
	}
	logger.Info("live session ended")
}

func (h LiveHandler) originAllowed(r *http.Request) bool {
	if len(h.Config.AllowedOrigins) == 0 {
		return true
	}
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		// Non-browser clients send no Origin header.
		return true
	}
	if _, ok := h.Config.AllowedOrigins[origin]; ok {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	_, ok := h.Config.AllowedOrigins[u.Scheme+"://"+u.Host]
	return ok
}
