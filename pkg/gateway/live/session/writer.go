package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/navigo-ai/navigo/pkg/gateway/live/protocol"
	"github.com/navigo-ai/navigo/pkg/gateway/metrics"
)

type outboundFrame struct {
	payload  []byte
	msgType  string
	priority bool
}

// encodeOutbound marshals a typed server message and classifies its lane.
// Control and UI messages preempt buffered media chunks.
func encodeOutbound(msg any) (outboundFrame, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return outboundFrame{}, fmt.Errorf("encode outbound message: %w", err)
	}
	frame := outboundFrame{payload: payload}
	switch m := msg.(type) {
	case protocol.ServerAudio:
		frame.msgType = m.Type
	case protocol.ServerText:
		frame.msgType = m.Type
	case protocol.ServerUserTranscript:
		frame.msgType = m.Type
	case protocol.ServerSessionID:
		frame.msgType = m.Type
		frame.priority = true
	case protocol.ServerInterrupted:
		frame.msgType = m.Type
		frame.priority = true
	case protocol.ServerTurnComplete:
		frame.msgType = m.Type
		frame.priority = true
	case protocol.ServerUI:
		frame.msgType = m.Type
		frame.priority = true
	default:
		return outboundFrame{}, fmt.Errorf("unsupported outbound message type %T", msg)
	}
	return frame, nil
}

type wsWriter interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// writeLoop is the single writer for the connection. It drains both lanes,
// giving hard priority to control frames, pings the peer, and on shutdown
// flushes pending control frames before closing the connection. Closing the
// connection here is what unblocks the router's blocking read.
func (s *Session) writeLoop(ctx context.Context) error {
	w := outboundWriter{
		ws:           s.conn,
		ctx:          ctx,
		pingInterval: s.cfg.PingInterval,
		writeTimeout: s.cfg.WriteTimeout,
		priority:     s.outboundPriority,
		normal:       s.outboundNormal,
	}
	err := w.run()
	if err != nil {
		// The router's blocking read only unblocks when the connection
		// closes; run() handles this itself on the cancellation path.
		_ = s.conn.Close()
	}
	return err
}

type outboundWriter struct {
	ws           wsWriter
	ctx          context.Context
	pingInterval time.Duration
	writeTimeout time.Duration
	priority     <-chan outboundFrame
	normal       <-chan outboundFrame
}

func (w *outboundWriter) run() error {
	pingTicker := time.NewTicker(w.pingInterval)
	defer pingTicker.Stop()

	var pendingNormal *outboundFrame

	for {
		select {
		case <-w.ctx.Done():
			w.flushPriorityOnShutdown()
			_ = w.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(w.writeTimeout))
			_ = w.ws.Close()
			return nil
		default:
		}

		// Hard priority: drain control frames before any normal frame.
		select {
		case frame := <-w.priority:
			if err := w.writeFrame(frame); err != nil {
				return err
			}
			continue
		default:
		}

		// A queued control frame may still preempt a normal frame we have
		// already dequeued.
		if pendingNormal != nil {
			select {
			case frame := <-w.priority:
				if err := w.writeFrame(frame); err != nil {
					return err
				}
				continue
			default:
			}
			if err := w.writeFrame(*pendingNormal); err != nil {
				return err
			}
			pendingNormal = nil
			continue
		}

		select {
		case <-w.ctx.Done():
			continue
		case <-pingTicker.C:
			deadline := time.Now().Add(w.writeTimeout)
			if err := w.ws.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				return fmt.Errorf("write ping: %w", err)
			}
		case frame := <-w.priority:
			if err := w.writeFrame(frame); err != nil {
				return err
			}
		case frame := <-w.normal:
			pendingNormal = &frame
		}
	}
}

func (w *outboundWriter) flushPriorityOnShutdown() {
	flushTimeout := 100 * time.Millisecond
	if w.writeTimeout > 0 && w.writeTimeout < flushTimeout {
		flushTimeout = w.writeTimeout
	}

	deadline := time.Now().Add(flushTimeout)
	maxFlushFrames := 8

	for i := 0; i < maxFlushFrames && time.Now().Before(deadline); i++ {
		select {
		case frame := <-w.priority:
			_ = w.writeFrame(frame)
		default:
			return
		}
	}
}

func (w *outboundWriter) writeFrame(frame outboundFrame) error {
	if len(frame.payload) == 0 {
		return nil
	}
	if err := w.ws.SetWriteDeadline(time.Now().Add(w.writeTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := w.ws.WriteMessage(websocket.TextMessage, frame.payload); err != nil {
		return fmt.Errorf("write client frame: %w", err)
	}
	metrics.OutboundSent(frame.msgType)
	return nil
}
