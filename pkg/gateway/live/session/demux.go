package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/navigo-ai/navigo/pkg/gateway/live/protocol"
	"github.com/navigo-ai/navigo/pkg/gateway/metrics"
	"github.com/navigo-ai/navigo/pkg/gateway/upstream"
)

const interruptedNotice = "Response interrupted by user input"

// demux consumes the backend event sequence and drives the turn-state
// machine. The backend closing its stream ends the session.
func (s *Session) demux(ctx context.Context) error {
	defer s.cancel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-s.upstream.Events():
			if !ok {
				err := s.upstream.Err()
				if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
					return fmt.Errorf("backend stream: %w", err)
				}
				return nil
			}
			if err := s.handleEvent(ctx, ev); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// handleEvent processes one backend event. Aspects the event does not carry
// are skipped; only outbound transport failure is returned as an error.
func (s *Session) handleEvent(ctx context.Context, ev upstream.Event) error {
	if r := ev.Resumption; r != nil && r.Resumable && r.NewHandle != "" {
		s.turn.lastHandle = r.NewHandle
		s.logger.Info("established new session handle", "session_id", s.sessionID, "handle", r.NewHandle)
		if err := s.Send(protocol.ServerSessionID{Type: "session_id", Data: r.NewHandle}); err != nil {
			return err
		}
	}

	if c := ev.Content; c != nil {
		for _, part := range c.Parts {
			if len(part.Audio) > 0 {
				msg := protocol.ServerAudio{
					Type: "audio",
					Data: base64.StdEncoding.EncodeToString(part.Audio),
				}
				if err := s.Send(msg); err != nil {
					return err
				}
			}
			if part.Text == "" {
				continue
			}
			if c.Role == "user" {
				if ev.Partial {
					if err := s.Send(protocol.ServerUserTranscript{Type: "user_transcript", Data: part.Text}); err != nil {
						return err
					}
				}
				s.turn.input = append(s.turn.input, part.Text)
			} else if ev.Partial {
				// The consolidated (non-partial) view duplicates the partial
				// stream; only partial chunks are emitted and accumulated.
				if err := s.Send(protocol.ServerText{Type: "text", Data: part.Text}); err != nil {
					return err
				}
				s.turn.output = append(s.turn.output, part.Text)
			}
		}
	}

	if ev.Interrupted && !s.turn.interrupted {
		s.logger.Warn("user has interrupted the stream", "session_id", s.sessionID)
		metrics.InterruptionObserved()
		if err := s.Send(protocol.ServerInterrupted{Type: "interrupted", Data: interruptedNotice}); err != nil {
			return err
		}
		s.turn.interrupted = true
	}

	if ev.TurnComplete {
		if !s.turn.interrupted {
			s.logger.Info("the model has completed its turn", "session_id", s.sessionID)
			var handle *string
			if s.turn.lastHandle != "" {
				h := s.turn.lastHandle
				handle = &h
			}
			if err := s.Send(protocol.ServerTurnComplete{Type: "turn_complete", SessionID: handle}); err != nil {
				return err
			}
		}
		if unique := dedupFragments(s.turn.input); len(unique) > 0 {
			s.logger.Info("transcribed user speech", "session_id", s.sessionID, "text", strings.Join(unique, " "))
		}
		if unique := dedupFragments(s.turn.output); len(unique) > 0 {
			s.logger.Info("generated model response", "session_id", s.sessionID, "text", strings.Join(unique, " "))
		}
		metrics.TurnCompleted()
		s.turn.reset()
	}

	if len(ev.ToolCalls) > 0 {
		if err := s.dispatchToolCalls(ctx, ev.ToolCalls); err != nil {
			return err
		}
	}

	return nil
}

func (s *Session) dispatchToolCalls(ctx context.Context, calls []upstream.ToolCall) error {
	if s.tools == nil {
		s.logger.Warn("dropping tool calls with no dispatcher configured", "session_id", s.sessionID, "count", len(calls))
		return nil
	}
	results := make([]upstream.ToolResult, 0, len(calls))
	for _, call := range calls {
		results = append(results, s.tools.Dispatch(ctx, s.sessionID, call))
	}
	if err := s.upstream.SendToolResponse(ctx, results); err != nil {
		return fmt.Errorf("send tool response: %w", err)
	}
	return nil
}
