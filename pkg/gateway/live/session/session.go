// Package session implements the per-connection concurrency core of the live
// gateway: an inbound frame router, bounded per-medium media queues with two
// forwarders draining them into the backend stream, a backend event
// demultiplexer reconstructing turn boundaries, and a dedicated outbound
// writer serializing all client-bound frames. The tasks run as one errgroup:
// when any of them ends, the whole session is torn down.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/navigo-ai/navigo/pkg/gateway/live/protocol"
	"github.com/navigo-ai/navigo/pkg/gateway/metrics"
	"github.com/navigo-ai/navigo/pkg/gateway/upstream"
)

// Medium identifies which bounded queue a frame belongs to.
type Medium string

const (
	MediumAudio Medium = "audio"
	MediumVideo Medium = "video"
)

// MediaFrame is one decoded unit of client media. Immutable once enqueued,
// consumed exactly once by the matching forwarder.
type MediaFrame struct {
	Medium Medium
	Data   []byte
	Mode   string
}

// ToolDispatcher executes one backend tool call and produces its result.
// Implementations must contain their own failures: a failed display is
// reported in the result string, never as an error that could end the
// session.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, sessionID string, call upstream.ToolCall) upstream.ToolResult
}

type Config struct {
	AudioQueueSize    int
	VideoQueueSize    int
	OutboundQueueSize int

	// SendSampleRate is the PCM rate declared when forwarding client audio.
	SendSampleRate int

	PingInterval    time.Duration
	WriteTimeout    time.Duration
	MaxMessageBytes int64
}

type Dependencies struct {
	Conn      *websocket.Conn
	Upstream  upstream.Stream
	Tools     ToolDispatcher
	Logger    *slog.Logger
	SessionID string
	ClientID  string
	Config    Config
}

type Session struct {
	conn      *websocket.Conn
	upstream  upstream.Stream
	tools     ToolDispatcher
	logger    *slog.Logger
	sessionID string
	clientID  string
	cfg       Config

	ctx    context.Context
	cancel context.CancelFunc

	audioQueue chan MediaFrame
	videoQueue chan MediaFrame

	outboundPriority chan outboundFrame
	outboundNormal   chan outboundFrame

	// turn is owned exclusively by the demux goroutine.
	turn turnState
}

func New(deps Dependencies) (*Session, error) {
	if deps.Conn == nil {
		return nil, fmt.Errorf("connection is required")
	}
	if deps.Upstream == nil {
		return nil, fmt.Errorf("upstream stream is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Config.AudioQueueSize <= 0 {
		deps.Config.AudioQueueSize = 64
	}
	if deps.Config.VideoQueueSize <= 0 {
		deps.Config.VideoQueueSize = 8
	}
	if deps.Config.OutboundQueueSize <= 0 {
		deps.Config.OutboundQueueSize = 128
	}
	if deps.Config.SendSampleRate <= 0 {
		deps.Config.SendSampleRate = 16000
	}
	if deps.Config.PingInterval <= 0 {
		deps.Config.PingInterval = 20 * time.Second
	}
	if deps.Config.WriteTimeout <= 0 {
		deps.Config.WriteTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		conn:             deps.Conn,
		upstream:         deps.Upstream,
		tools:            deps.Tools,
		logger:           deps.Logger,
		sessionID:        deps.SessionID,
		clientID:         deps.ClientID,
		cfg:              deps.Config,
		ctx:              ctx,
		cancel:           cancel,
		audioQueue:       make(chan MediaFrame, deps.Config.AudioQueueSize),
		videoQueue:       make(chan MediaFrame, deps.Config.VideoQueueSize),
		outboundPriority: make(chan outboundFrame, 8),
		outboundNormal:   make(chan outboundFrame, deps.Config.OutboundQueueSize),
	}, nil
}

// Cancel tears the session down from outside (shutdown, registry eviction).
func (s *Session) Cancel() {
	s.cancel()
}

// Run drives the session until the connection closes, the backend stream
// ends, or any task fails. It always returns with every task stopped and the
// upstream closed.
func (s *Session) Run() error {
	defer s.cancel()
	defer func() { _ = s.upstream.Close() }()

	if s.cfg.MaxMessageBytes > 0 {
		s.conn.SetReadLimit(s.cfg.MaxMessageBytes)
	}

	metrics.SessionStarted()
	defer metrics.SessionEnded()

	g, ctx := errgroup.WithContext(s.ctx)
	g.Go(func() error { return s.readLoop(ctx) })
	g.Go(func() error { return s.forwardAudio(ctx) })
	g.Go(func() error { return s.forwardVideo(ctx) })
	g.Go(func() error { return s.demux(ctx) })
	g.Go(func() error { return s.writeLoop(ctx) })

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// readLoop is the inbound frame router. A malformed frame is logged and
// skipped; only transport failure or peer close ends the loop. Its exit
// cancels the session so the sibling tasks are torn down with it.
func (s *Session) readLoop(ctx context.Context) error {
	defer s.cancel()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				s.logger.Info("client closed connection", "client_id", s.clientID, "session_id", s.sessionID)
				return nil
			}
			return fmt.Errorf("read client frame: %w", err)
		}

		decoded, err := protocol.DecodeClientMessage(data)
		if err != nil {
			s.logger.Error("could not decode client frame", "client_id", s.clientID, "error", err)
			continue
		}

		switch msg := decoded.(type) {
		case protocol.ClientAudio:
			metrics.FrameReceived(string(MediumAudio))
			if !s.enqueue(ctx, s.audioQueue, MediaFrame{Medium: MediumAudio, Data: msg.Payload}) {
				return nil
			}
		case protocol.ClientVideo:
			metrics.FrameReceived(string(MediumVideo))
			if !s.enqueue(ctx, s.videoQueue, MediaFrame{Medium: MediumVideo, Data: msg.Payload, Mode: msg.Mode}) {
				return nil
			}
		case protocol.ClientEnd:
			s.logger.Info("client concluded data transmission for this turn", "client_id", s.clientID)
		case protocol.ClientText:
			s.logger.Info("received text from client", "client_id", s.clientID, "text", msg.Data)
		}
	}
}

// enqueue blocks when the queue is full (backpressure); frames are never
// dropped. Returns false when the session is shutting down.
func (s *Session) enqueue(ctx context.Context, queue chan<- MediaFrame, frame MediaFrame) bool {
	select {
	case queue <- frame:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Session) forwardAudio(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame := <-s.audioQueue:
			if err := s.upstream.SendAudio(ctx, frame.Data, s.cfg.SendSampleRate); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("forward audio to backend: %w", err)
			}
			metrics.FrameForwarded(string(MediumAudio))
		}
	}
}

func (s *Session) forwardVideo(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame := <-s.videoQueue:
			s.logger.Info("transmitting video frame", "client_id", s.clientID, "mode", frame.Mode)
			if err := s.upstream.SendVideo(ctx, frame.Data); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("forward video to backend: %w", err)
			}
			metrics.FrameForwarded(string(MediumVideo))
		}
	}
}

// Send serializes one outbound message and queues it for the writer task.
// Control messages take the priority lane so an interruption is never stuck
// behind buffered audio chunks. Safe for concurrent use; the writer task is
// the only goroutine touching the connection's write side.
func (s *Session) Send(msg any) error {
	frame, err := encodeOutbound(msg)
	if err != nil {
		return err
	}
	lane := s.outboundNormal
	if frame.priority {
		lane = s.outboundPriority
	}
	select {
	case lane <- frame:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}
